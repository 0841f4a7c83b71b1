package services

import (
	"antislack/internal/crypto"
	"antislack/internal/errs"
	"antislack/internal/host"
	"antislack/internal/models"
	"antislack/internal/providers"
	"antislack/internal/storage"
	"context"
	"fmt"
	"sync"
	"time"
)

const NuclearAlarmName = "nuclear-mode-expiration"

const (
	nuclearReadFailure   = "Could not verify nuclear mode status"
	nuclearVerifyFailure = "Cannot verify: storage error"
	nuclearNotActive     = "Nuclear mode not active"
)

type NuclearStatus struct {
	Active        bool   `json:"active"`
	StartedAt     int64  `json:"startedAt,omitempty"`
	ExpiresAt     int64  `json:"expiresAt,omitempty"`
	DurationHours int    `json:"durationHours,omitempty"`
	RemainingMs   int64  `json:"remainingMs"`
	Remaining     string `json:"remaining"`
	Error         string `json:"error,omitempty"`
}

// CompletionRecorderInterface counts lockdowns that ran their full course.
type CompletionRecorderInterface interface {
	RecordNuclearCompletion(ctx context.Context)
}

type NuclearServiceInterface interface {
	Activate(ctx context.Context, hours int, passphrase string) (NuclearStatus, error)
	Deactivate(ctx context.Context) error
	IsActive(ctx context.Context) NuclearStatus
	LockdownActive(ctx context.Context) bool
	VerifyEmergencyAbort(ctx context.Context, passphrase string) crypto.VerifyResult
	Abort(ctx context.Context, passphrase string) error
	HandleExpiry(ctx context.Context) error
	Remaining(ctx context.Context) time.Duration
	RearmAlarm(ctx context.Context) bool
}

type NuclearService struct {
	mu      sync.Mutex
	local   storage.PartitionInterface
	alarms  host.AlarmSchedulerInterface
	stats   CompletionRecorderInterface
	metrics providers.MetricsProviderInterface
	logger  providers.Logger
	now     func() time.Time
}

func NewNuclearService(
	parts *storage.Partitions,
	alarms host.AlarmSchedulerInterface,
	stats CompletionRecorderInterface,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
) *NuclearService {
	return &NuclearService{
		local:   parts.Local,
		alarms:  alarms,
		stats:   stats,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

func (n *NuclearService) load(ctx context.Context) (models.NuclearMode, error) {
	mode := models.DefaultNuclearMode()
	if _, err := storage.GetJSON(ctx, n.local, storage.KeyNuclearMode, &mode); err != nil {
		return models.NuclearMode{}, err
	}
	return mode, nil
}

func (n *NuclearService) statusOf(mode models.NuclearMode) NuclearStatus {
	if !mode.Active {
		return NuclearStatus{Remaining: models.FormatRemaining(0)}
	}
	remaining := mode.Remaining(n.now().UnixMilli())
	return NuclearStatus{
		Active:        true,
		StartedAt:     mode.StartedAt,
		ExpiresAt:     mode.ExpiresAt,
		DurationHours: mode.DurationHours,
		RemainingMs:   remaining.Milliseconds(),
		Remaining:     models.FormatRemaining(remaining),
	}
}

// Activate starts a lockdown of hours, protected by passphrase for an
// emergency abort. Any previous record and its alarm are replaced; callers
// that must not extend a running lockdown check IsActive first.
func (n *NuclearService) Activate(ctx context.Context, hours int, passphrase string) (NuclearStatus, error) {
	if !models.ValidNuclearDuration(hours) {
		return NuclearStatus{}, fmt.Errorf("%w: %d hours", errs.ErrInvalidDuration, hours)
	}
	if err := crypto.ValidateStrength(passphrase); err != nil {
		return NuclearStatus{}, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	hash, err := crypto.Hash(passphrase)
	if err != nil {
		return NuclearStatus{}, err
	}
	now := n.now()
	mode := models.NuclearMode{
		Active:         true,
		StartedAt:      now.UnixMilli(),
		ExpiresAt:      now.Add(time.Duration(hours) * time.Hour).UnixMilli(),
		DurationHours:  hours,
		PassphraseHash: hash,
	}
	if err := storage.SetJSON(ctx, n.local, storage.KeyNuclearMode, mode); err != nil {
		return NuclearStatus{}, err
	}
	n.alarms.Clear(NuclearAlarmName)
	n.alarms.Create(NuclearAlarmName, time.UnixMilli(mode.ExpiresAt))
	n.metrics.SetNuclearActive(true)
	n.logger.Infof(providers.TypeNuclear, "Nuclear mode activated for %d hour(s), expires at %s",
		hours, time.UnixMilli(mode.ExpiresAt).Format(time.RFC3339))
	return n.statusOf(mode), nil
}

// LockdownActive reports whether rule generation must ignore bypass
// sessions. It shares the fail-closed read of IsActive.
func (n *NuclearService) LockdownActive(ctx context.Context) bool {
	return n.IsActive(ctx).Active
}

func (n *NuclearService) Deactivate(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.deactivate(ctx)
}

func (n *NuclearService) deactivate(ctx context.Context) error {
	n.alarms.Clear(NuclearAlarmName)
	if err := storage.SetJSON(ctx, n.local, storage.KeyNuclearMode, models.DefaultNuclearMode()); err != nil {
		return err
	}
	n.metrics.SetNuclearActive(false)
	n.logger.Infof(providers.TypeNuclear, "Nuclear mode deactivated")
	return nil
}

// complete records a natural expiry and then resets. The caller holds mu,
// so concurrent observers of the same expiry count it once.
func (n *NuclearService) complete(ctx context.Context) error {
	n.stats.RecordNuclearCompletion(ctx)
	return n.deactivate(ctx)
}

// IsActive fails closed: when the record cannot be read the lockdown is
// reported active with an error message.
func (n *NuclearService) IsActive(ctx context.Context) NuclearStatus {
	n.mu.Lock()
	defer n.mu.Unlock()

	mode, err := n.load(ctx)
	if err != nil {
		n.logger.Errorf(providers.TypeNuclear, "Read nuclear mode: %v", err)
		return NuclearStatus{Active: true, Error: nuclearReadFailure}
	}
	if !mode.Active {
		return n.statusOf(mode)
	}
	if mode.Expired(n.now().UnixMilli()) {
		if err := n.complete(ctx); err != nil {
			n.logger.Errorf(providers.TypeNuclear, "Deactivate expired nuclear mode: %v", err)
		}
		return n.statusOf(models.DefaultNuclearMode())
	}
	return n.statusOf(mode)
}

func (n *NuclearService) VerifyEmergencyAbort(ctx context.Context, passphrase string) crypto.VerifyResult {
	mode, err := n.load(ctx)
	if err != nil {
		n.logger.Errorf(providers.TypeNuclear, "Read nuclear mode: %v", err)
		return crypto.VerifyResult{Error: nuclearVerifyFailure}
	}
	if !mode.Active || mode.PassphraseHash == "" {
		return crypto.VerifyResult{Error: nuclearNotActive}
	}
	return crypto.Verify(passphrase, mode.PassphraseHash)
}

// Abort ends a lockdown early after the passphrase verifies. An aborted
// lockdown is not a completion.
func (n *NuclearService) Abort(ctx context.Context, passphrase string) error {
	res := n.VerifyEmergencyAbort(ctx, passphrase)
	if !res.Success {
		switch res.Error {
		case "":
			n.logger.Warnf(providers.TypeNuclear, "Emergency abort rejected: wrong passphrase")
			return errs.ErrPassphraseMismatch
		case nuclearNotActive:
			return errs.ErrNuclearInactive
		case crypto.InvalidHashFormat:
			return errs.ErrPassphraseFormat
		default:
			return fmt.Errorf("%w: %s", errs.ErrStorageRead, res.Error)
		}
	}
	if err := n.Deactivate(ctx); err != nil {
		return err
	}
	n.logger.Warnf(providers.TypeNuclear, "Nuclear mode aborted with passphrase")
	return nil
}

// HandleExpiry is the alarm and startup path. Running it again after the
// lockdown has been reset does nothing.
func (n *NuclearService) HandleExpiry(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	mode, err := n.load(ctx)
	if err != nil {
		return err
	}
	if !mode.Active {
		return nil
	}
	if !mode.Expired(n.now().UnixMilli()) {
		n.alarms.Create(NuclearAlarmName, time.UnixMilli(mode.ExpiresAt))
		return nil
	}
	if err := n.complete(ctx); err != nil {
		return err
	}
	n.logger.Infof(providers.TypeNuclear, "Nuclear mode expired")
	return nil
}

func (n *NuclearService) Remaining(ctx context.Context) time.Duration {
	mode, err := n.load(ctx)
	if err != nil || !mode.Active {
		return 0
	}
	return mode.Remaining(n.now().UnixMilli())
}

// RearmAlarm recreates the expiry alarm for a lockdown still running.
func (n *NuclearService) RearmAlarm(ctx context.Context) bool {
	mode, err := n.load(ctx)
	if err != nil || !mode.Active || mode.Expired(n.now().UnixMilli()) {
		return false
	}
	n.alarms.Clear(NuclearAlarmName)
	n.alarms.Create(NuclearAlarmName, time.UnixMilli(mode.ExpiresAt))
	n.metrics.SetNuclearActive(true)
	return true
}
