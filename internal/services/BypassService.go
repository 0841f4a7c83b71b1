package services

import (
	"antislack/internal/errs"
	"antislack/internal/host"
	"antislack/internal/models"
	"antislack/internal/providers"
	"antislack/internal/storage"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// BypassAlarmPrefix prefixes the alarm that expires a session.
const BypassAlarmPrefix = "bypass-expire-"

func BypassAlarmName(domain string) string {
	return BypassAlarmPrefix + domain
}

// BypassDomainFromAlarm extracts the domain from a bypass alarm name.
func BypassDomainFromAlarm(name string) (string, bool) {
	return strings.CutPrefix(name, BypassAlarmPrefix)
}

type BypassServiceInterface interface {
	Add(ctx context.Context, domain string, durationMinutes int) (models.BypassSession, error)
	Remove(ctx context.Context, domain string) error
	IsBypassed(ctx context.Context, domain string) bool
	CleanExpired(ctx context.Context) (int, error)
	ActiveDomains(ctx context.Context) []string
	List(ctx context.Context) []models.BypassSession
	RearmAlarms(ctx context.Context) int
}

type BypassService struct {
	mu     sync.Mutex
	local  storage.PartitionInterface
	alarms host.AlarmSchedulerInterface
	logger providers.Logger
	now    func() time.Time
}

func NewBypassService(parts *storage.Partitions, alarms host.AlarmSchedulerInterface, logger providers.Logger) *BypassService {
	return &BypassService{
		local:  parts.Local,
		alarms: alarms,
		logger: logger,
		now:    time.Now,
	}
}

func (b *BypassService) load(ctx context.Context) ([]models.BypassSession, error) {
	var sessions []models.BypassSession
	if _, err := storage.GetJSON(ctx, b.local, storage.KeyBypassSessions, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

// sessions reads the stored list; read failures degrade to no bypasses.
func (b *BypassService) sessions(ctx context.Context) []models.BypassSession {
	sessions, err := b.load(ctx)
	if err != nil {
		b.logger.Errorf(providers.TypeBypass, "Get bypass sessions: %v", err)
		return nil
	}
	return sessions
}

func (b *BypassService) save(ctx context.Context, sessions []models.BypassSession) error {
	if sessions == nil {
		sessions = []models.BypassSession{}
	}
	return storage.SetJSON(ctx, b.local, storage.KeyBypassSessions, sessions)
}

// Add grants domain a session of durationMinutes, replacing any existing one.
func (b *BypassService) Add(ctx context.Context, domain string, durationMinutes int) (models.BypassSession, error) {
	if durationMinutes <= 0 {
		return models.BypassSession{}, fmt.Errorf("%w: %d minutes", errs.ErrInvalidDuration, durationMinutes)
	}
	domain = models.CleanPattern(domain)
	if domain == "" {
		return models.BypassSession{}, errs.ErrInvalidDomain
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sessions, err := b.load(ctx)
	if err != nil {
		return models.BypassSession{}, err
	}
	now := b.now()
	session := models.BypassSession{
		Domain:    domain,
		GrantedAt: now.UnixMilli(),
		ExpiresAt: now.Add(time.Duration(durationMinutes) * time.Minute).UnixMilli(),
	}
	sessions = slices.DeleteFunc(sessions, func(s models.BypassSession) bool { return s.Domain == domain })
	sessions = append(sessions, session)
	if err := b.save(ctx, sessions); err != nil {
		return models.BypassSession{}, err
	}

	b.alarms.Create(BypassAlarmName(domain), time.UnixMilli(session.ExpiresAt))
	b.logger.Infof(providers.TypeBypass, "Bypass granted for %s (%d min)", domain, durationMinutes)
	return session, nil
}

// Remove deletes the session for domain and its alarm. Removing an absent
// session is not an error.
func (b *BypassService) Remove(ctx context.Context, domain string) error {
	domain = models.CleanPattern(domain)
	b.mu.Lock()
	defer b.mu.Unlock()

	sessions, err := b.load(ctx)
	if err != nil {
		return err
	}
	kept := slices.DeleteFunc(sessions, func(s models.BypassSession) bool { return s.Domain == domain })
	if err := b.save(ctx, kept); err != nil {
		return err
	}
	b.alarms.Clear(BypassAlarmName(domain))
	return nil
}

// IsBypassed reports whether an unexpired session covers domain.
func (b *BypassService) IsBypassed(ctx context.Context, domain string) bool {
	nowMs := b.now().UnixMilli()
	for _, s := range b.sessions(ctx) {
		if s.Covers(domain, nowMs) {
			return true
		}
	}
	return false
}

// CleanExpired drops sessions whose expiry has passed and returns how many
// were removed.
func (b *BypassService) CleanExpired(ctx context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sessions, err := b.load(ctx)
	if err != nil {
		return 0, err
	}
	nowMs := b.now().UnixMilli()
	active := slices.DeleteFunc(slices.Clone(sessions), func(s models.BypassSession) bool { return s.Expired(nowMs) })
	removed := len(sessions) - len(active)
	if removed == 0 {
		return 0, nil
	}
	if err := b.save(ctx, active); err != nil {
		return 0, err
	}
	b.logger.Infof(providers.TypeBypass, "Cleaned %d expired bypass sessions", removed)
	return removed, nil
}

func (b *BypassService) ActiveDomains(ctx context.Context) []string {
	nowMs := b.now().UnixMilli()
	var domains []string
	for _, s := range b.sessions(ctx) {
		if !s.Expired(nowMs) {
			domains = append(domains, s.Domain)
		}
	}
	return domains
}

// List returns the unexpired sessions.
func (b *BypassService) List(ctx context.Context) []models.BypassSession {
	nowMs := b.now().UnixMilli()
	out := []models.BypassSession{}
	for _, s := range b.sessions(ctx) {
		if !s.Expired(nowMs) {
			out = append(out, s)
		}
	}
	return out
}

// RearmAlarms recreates expiry alarms for sessions still running, since
// timers do not survive a restart.
func (b *BypassService) RearmAlarms(ctx context.Context) int {
	sessions := b.List(ctx)
	for _, s := range sessions {
		b.alarms.Create(BypassAlarmName(s.Domain), time.UnixMilli(s.ExpiresAt))
	}
	return len(sessions)
}
