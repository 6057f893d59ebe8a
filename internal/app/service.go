// Package app wires the companion service together: glucose polling,
// alarms, the button silencer and remote command dispatch.
package app

import (
	"fmt"
	"os"
	"sync"
	"time"

	"loopremote/internal/alarms"
	"loopremote/internal/backup"
	"loopremote/internal/history"
	"loopremote/internal/models"
	"loopremote/internal/nightscout"
	"loopremote/internal/remote"
	"loopremote/internal/safety"
	"loopremote/internal/settings"
	"loopremote/internal/silencer"
	"loopremote/internal/statusicon"
)

const unitMmolL = "mmol/L"

// Service is the long-running companion daemon
type Service struct {
	store           *settings.Store
	historyLog      *history.Log
	alarmManager    *alarms.Manager
	badge           *statusicon.Renderer
	badgePath       string
	guard           *safety.Guard
	limiter         *remote.BolusLimiter
	recommendations *models.RecommendationSlot
	composer        remote.MessageComposer

	mu                sync.RWMutex
	client            *nightscout.Client
	lastStatus        *models.GlucoseStatus
	lastSuccessTime   time.Time
	consecutiveErrors int
	ticker            *time.Ticker
	stopChan          chan struct{}
	isRunning         bool
}

// New creates the service around an opened settings store and history
// log. badgePath is where the status badge PNG is written; empty
// disables badge rendering.
func New(store *settings.Store, historyLog *history.Log, badgePath string) *Service {
	s := store.Settings()

	svc := &Service{
		store:           store,
		historyLog:      historyLog,
		alarmManager:    alarms.NewManager(s),
		badge:           statusicon.NewRenderer(s),
		badgePath:       badgePath,
		guard:           safety.NewGuard(s),
		limiter:         remote.NewBolusLimiter(s, store.Save),
		recommendations: &models.RecommendationSlot{},
		stopChan:        make(chan struct{}),
	}

	if composer, err := remote.NewKDEConnectComposer(); err == nil {
		svc.composer = composer
	} else {
		fmt.Printf("Messaging surface unavailable: %v\n", err)
	}

	return svc
}

// Run starts the poll loop, the settings watcher and the button
// silencer. It returns immediately; call Stop to shut down.
func (s *Service) Run() {
	if s.store.Settings().IsConfigured() {
		s.initClient()
	}

	go s.startUpdateLoop()
	go s.watchSettings()
	go s.startSilencer()
}

// Stop shuts down the background loops
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	s.isRunning = false
	close(s.stopChan)
}

func (s *Service) initClient() {
	st := s.store.Settings().Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.client = nightscout.NewClient(
		st.NightscoutURL,
		st.APISecret,
		st.APIToken,
		st.UseToken,
	)
}

func (s *Service) startUpdateLoop() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true

	interval := time.Duration(s.store.Settings().RefreshInterval) * time.Second
	s.ticker = time.NewTicker(interval)
	s.mu.Unlock()

	// Initial fetch
	s.fetchAndUpdate()

	for {
		select {
		case <-s.ticker.C:
			s.fetchAndUpdate()
		case <-s.stopChan:
			s.ticker.Stop()
			return
		}
	}
}

// watchSettings folds settings changes back into the running service,
// whether they came from SaveSettings or an external file edit
func (s *Service) watchSettings() {
	changes := s.store.Subscribe("")
	for {
		select {
		case <-s.stopChan:
			return
		case change := <-changes:
			s.applySettings(change.Settings)
		}
	}
}

func (s *Service) applySettings(st *models.Settings) {
	s.initClient()
	s.alarmManager.UpdateSettings(s.store.Settings())
	s.badge.UpdateSettings(s.store.Settings())
	s.restartUpdateLoop(st.RefreshInterval)
}

func (s *Service) restartUpdateLoop(refreshSeconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker != nil {
		s.ticker.Stop()
	}
	s.ticker = time.NewTicker(time.Duration(refreshSeconds) * time.Second)
}

// startSilencer runs the volume-button monitor for the lifetime of the
// service. Without a readable volume source the alarms simply stay
// un-silenceable by button.
func (s *Service) startSilencer() {
	source, err := silencer.NewPulseVolumeSource()
	if err != nil {
		fmt.Printf("Volume monitoring unavailable: %v\n", err)
		return
	}
	defer func() {
		_ = source.Close()
	}()

	monitor := silencer.NewMonitor(source, s.alarmManager, s.alarmManager.Events())
	monitor.Run(s.stopChan)
}

func (s *Service) fetchAndUpdate() {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()

	if client == nil {
		return
	}

	entries, err := client.GetRecentEntries(2)
	if err != nil || len(entries) == 0 {
		if err == nil {
			err = fmt.Errorf("no entries returned")
		}
		s.handleFetchError(err)
		return
	}

	s.mu.Lock()
	s.consecutiveErrors = 0
	s.lastSuccessTime = time.Now()
	s.mu.Unlock()

	status := s.createStatus(entries)

	s.mu.Lock()
	s.lastStatus = status
	s.mu.Unlock()

	s.updateBadge(status)

	if err := s.alarmManager.CheckAndNotify(status); err != nil {
		fmt.Printf("Notification error: %v\n", err)
	}

	s.refreshRecommendation(client)
}

func (s *Service) handleFetchError(err error) {
	s.mu.Lock()
	s.consecutiveErrors++
	errorCount := s.consecutiveErrors
	lastStatus := s.lastStatus
	lastSuccess := s.lastSuccessTime
	s.mu.Unlock()

	fmt.Printf("Error fetching glucose data (attempt %d): %v\n", errorCount, err)

	if lastStatus != nil && !lastSuccess.IsZero() {
		timeSinceSuccess := time.Since(lastSuccess)
		lastStatus.StaleMinutes = int(timeSinceSuccess.Minutes())
		lastStatus.IsStale = lastStatus.StaleMinutes > 7
		s.updateBadge(lastStatus)
		return
	}

	if s.badgePath != "" {
		if data, renderErr := s.badge.RenderPlaceholder("ERR"); renderErr == nil {
			_ = os.WriteFile(s.badgePath, data, 0600)
		}
	}
}

func (s *Service) createStatus(entries []models.GlucoseEntry) *models.GlucoseStatus {
	st := s.store.Settings()
	entry := &entries[0]

	staleMinutes := int(time.Since(entry.Time()).Minutes())

	status := &models.GlucoseStatus{
		Value:        entry.SGV,
		ValueMmol:    entry.ValueMmolL(),
		Trend:        entry.TrendArrow(),
		Direction:    entry.Direction,
		Time:         entry.Time(),
		Status:       st.GetGlucoseStatus(entry.SGV),
		StaleMinutes: staleMinutes,
		IsStale:      staleMinutes > 15,
	}

	if len(entries) > 1 {
		status.Delta = entry.SGV - entries[1].SGV
	}

	return status
}

// refreshRecommendation pulls the latest device status and overwrites
// the shared recommendation slot
func (s *Service) refreshRecommendation(client *nightscout.Client) {
	deviceStatus, err := client.GetDeviceStatus()
	if err != nil {
		fmt.Printf("Error fetching device status: %v\n", err)
		return
	}

	if deviceStatus.Loop.RecommendedBolus <= 0 {
		return
	}
	recTime := deviceStatus.Loop.RecommendationTime()
	if recTime.IsZero() {
		return
	}

	s.recommendations.Set(models.DoseRecommendation{
		Units: deviceStatus.Loop.RecommendedBolus,
		Time:  recTime,
	})
}

func (s *Service) updateBadge(status *models.GlucoseStatus) {
	if s.badgePath == "" {
		return
	}
	if err := s.badge.RenderToFile(status, s.badgePath); err != nil {
		fmt.Printf("Error rendering status badge: %v\n", err)
	}
}

// Command dispatch

// dispatcher selects the transport configured in settings
func (s *Service) dispatcher() (remote.Dispatcher, error) {
	st := s.store.Settings()
	if !st.RemoteConfigured() {
		return nil, remote.ErrInvalidConfiguration
	}

	switch st.Clone().RemoteTransport {
	case models.TransportPush:
		return remote.NewPushDispatcher(st, s.limiter), nil
	case models.TransportSMS:
		if s.composer == nil {
			return nil, fmt.Errorf("%w: no messaging surface", remote.ErrNetwork)
		}
		return remote.NewSMSDispatcher(st, s.limiter, s.composer), nil
	case models.TransportCloud:
		s.mu.RLock()
		client := s.client
		s.mu.RUnlock()
		if client == nil {
			return nil, remote.ErrInvalidConfiguration
		}
		return remote.NewCloudDispatcher(st, s.limiter, client), nil
	default:
		return nil, remote.ErrInvalidConfiguration
	}
}

// dispatch sends the command through the configured transport and
// records the attempt in the history log
func (s *Service) dispatch(cmd models.Command) (remote.Outcome, error) {
	d, err := s.dispatcher()
	if err != nil {
		return remote.Outcome{}, err
	}

	outcome, sendErr := d.Send(cmd)

	description := outcome.Description
	transport := outcome.Transport
	if sendErr != nil {
		// Best-effort description for failed attempts
		if wire, wireErr := remote.BuildWireString(cmd); wireErr == nil {
			description = wire
		}
		transport = s.store.Settings().Clone().RemoteTransport
	}
	if _, logErr := s.historyLog.Record(cmd, description, transport, sendErr); logErr != nil {
		fmt.Printf("Error recording command history: %v\n", logErr)
	}

	return outcome, sendErr
}

// SendBolus clamps and quantizes the requested dose, then dispatches
// it. The returned amount is what was actually sent.
func (s *Service) SendBolus(units float64, meal bool) (float64, remote.Outcome, error) {
	amount := s.guard.PrepareBolus(units)
	if amount <= 0 {
		return 0, remote.Outcome{}, fmt.Errorf("dose quantizes to zero")
	}

	outcome, err := s.dispatch(models.NewBolus(amount, meal))
	return amount, outcome, err
}

// SendCarbs dispatches a carb entry. consumedTime may be empty.
func (s *Service) SendCarbs(grams int, consumedTime string) (remote.Outcome, error) {
	maxCarbs := s.store.Settings().Clone().MaxCarbs
	if grams <= 0 || float64(grams) > maxCarbs {
		return remote.Outcome{}, fmt.Errorf("carb amount %d outside 1-%.0f", grams, maxCarbs)
	}
	return s.dispatch(models.NewCarbs(grams, consumedTime))
}

// SendTarget dispatches a temporary target override
func (s *Service) SendTarget(action string) (remote.Outcome, error) {
	return s.dispatch(models.NewTarget(action))
}

// SendLoop dispatches a loop control command
func (s *Service) SendLoop(action string) (remote.Outcome, error) {
	return s.dispatch(models.NewLoop(action))
}

// SendPump dispatches a pump control command
func (s *Service) SendPump(action string) (remote.Outcome, error) {
	return s.dispatch(models.NewPump(action))
}

// SendProfile dispatches a profile command
func (s *Service) SendProfile(action, name string) (remote.Outcome, error) {
	return s.dispatch(models.NewProfile(action, name))
}

// RequestStatus asks the device for a status report
func (s *Service) RequestStatus() (remote.Outcome, error) {
	return s.dispatch(models.Command{Kind: models.CommandStatus})
}

// RequestBG asks the device for the latest glucose reading
func (s *Service) RequestBG() (remote.Outcome, error) {
	return s.dispatch(models.Command{Kind: models.CommandBG})
}

// SendOTP is phase 2 of the SMS protocol: send the current one-time
// code. Only valid on the SMS transport.
func (s *Service) SendOTP() (remote.Outcome, error) {
	st := s.store.Settings()
	if st.Clone().RemoteTransport != models.TransportSMS {
		return remote.Outcome{}, remote.ErrInvalidConfiguration
	}
	if s.composer == nil {
		return remote.Outcome{}, fmt.Errorf("%w: no messaging surface", remote.ErrNetwork)
	}

	d := remote.NewSMSDispatcher(st, s.limiter, s.composer)
	return d.SendOTP()
}

// Recommendation returns the current device-suggested dose with its
// staleness classification. ok is false when nothing fresh enough
// exists to offer.
func (s *Service) Recommendation() (models.DoseRecommendation, safety.RecommendationState, bool) {
	return safety.OfferRecommendation(s.recommendations, time.Now())
}

// Status and settings access

// CurrentStatus returns the last computed glucose status
func (s *Service) CurrentStatus() *models.GlucoseStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastStatus
}

// History returns the dispatch history, newest first
func (s *Service) History() []history.Entry {
	return s.historyLog.List()
}

// GetSettings returns a settings snapshot
func (s *Service) GetSettings() *models.Settings {
	return s.store.Settings().Clone()
}

// SaveSettings persists new settings; the change flows back through
// the store subscription and reconfigures the running service
func (s *Service) SaveSettings(next *models.Settings) error {
	return s.store.Update(next)
}

// ExportBackup serializes the settings into a portable backup
func (s *Service) ExportBackup() ([]byte, error) {
	return backup.Export(s.store.Settings())
}

// ImportBackup merges a backup document into the current settings
func (s *Service) ImportBackup(data []byte) error {
	merged, err := backup.Import(data, s.store.Settings())
	if err != nil {
		return err
	}
	return s.store.Update(merged)
}

// SendTestNotification raises a test notification
func (s *Service) SendTestNotification() error {
	return s.alarmManager.SendTestNotification()
}

// TestConnection verifies the Nightscout connection
func (s *Service) TestConnection() error {
	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()

	if client == nil {
		return fmt.Errorf("not configured")
	}
	return client.TestConnection()
}
