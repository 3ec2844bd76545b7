package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Danticipation/chakrai/internal/cache"
	"github.com/Danticipation/chakrai/internal/identity"
	"github.com/Danticipation/chakrai/internal/metrics"
	"github.com/Danticipation/chakrai/internal/models"
	"github.com/Danticipation/chakrai/internal/store"
	"github.com/Danticipation/chakrai/internal/util"

	"github.com/google/uuid"
)

var (
	// ErrNoInstall is returned when a session start arrives without a device
	// cookie. Install registration must precede session start.
	ErrNoInstall = errors.New("no device registered for this client")

	// ErrUIDRequired indicates the caller skipped identity resolution.
	// This is a middleware ordering bug, not a client error.
	ErrUIDRequired = errors.New("uid missing before session binding")
)

// tagBytes is the truncation width for the ADID and UDID derivations:
// 16 bytes of HMAC-SHA256 output, the same 128-bit budget as the UID.
const tagBytes = 16

// SessionGrant is what a successful session start hands back to the client.
// It carries derived identifiers only, never key material or the raw DID.
type SessionGrant struct {
	SID  string `json:"sid"`
	UID  string `json:"uid"`
	ADID string `json:"adid"`
	UDID string `json:"udid"`
}

// BindingService establishes the device/session side of an identity:
// long-lived installs keyed by the anonymized device tag, user-device
// bindings, and revocable sessions.
type BindingService struct {
	store         *store.Store
	deviceKey     []byte
	userDeviceKey []byte
	bindings      cache.Cache[models.UserDevice]
	bindingTTL    time.Duration
	metrics       metrics.Recorder
}

func NewBindingService(
	s *store.Store,
	deviceKey, userDeviceKey []byte,
	bindings cache.Cache[models.UserDevice],
	bindingTTL time.Duration,
	m metrics.Recorder,
) *BindingService {
	return &BindingService{
		store:         s,
		deviceKey:     deviceKey,
		userDeviceKey: userDeviceKey,
		bindings:      bindings,
		bindingTTL:    bindingTTL,
		metrics:       m,
	}
}

// WithStore returns a copy of the service bound to a different store handle,
// typically the RLS-scoped transaction of the current request.
func (s *BindingService) WithStore(st *store.Store) *BindingService {
	c := *s
	c.store = st
	return &c
}

// DeriveADID computes the anonymized device tag for a raw device id.
// One-way: without the device key the DID cannot be recovered from it.
func (s *BindingService) DeriveADID(did []byte) string {
	return util.TruncatedHMAC(s.deviceKey, tagBytes, did)
}

// deriveUDID computes the anonymized user-device tag over uid || did.
func (s *BindingService) deriveUDID(uid string, did []byte) string {
	return util.TruncatedHMAC(s.userDeviceKey, tagBytes, []byte(uid), did)
}

// RegisterInstall records a device install. Repeat registrations of the same
// device are no-ops; racing first registrations are absorbed by the database
// uniqueness constraints rather than application locking.
func (s *BindingService) RegisterInstall(ctx context.Context, did []byte, platform string) (string, error) {
	if len(did) == 0 {
		s.metrics.RecordInstallRegistered(false)
		return "", ErrNoInstall
	}
	if platform == "" {
		platform = "web"
	}

	adid := s.DeriveADID(did)
	install := &models.Install{
		ADID:     adid,
		DIDHash:  util.SHA256Hex(did),
		Platform: platform,
	}

	if err := s.store.CreateInstall(ctx, install); err != nil {
		s.metrics.RecordInstallRegistered(false)
		return "", fmt.Errorf("failed to register install: %w", err)
	}

	s.metrics.RecordInstallRegistered(true)
	return adid, nil
}

// StartSession binds the resolved uid to the calling device and opens a new
// revocable session. When the device already carries a binding, the binding's
// uid wins: the same browser keeps the same pseudonymous identity even if the
// sealed cookie was cleared and re-minted in the meantime.
func (s *BindingService) StartSession(ctx context.Context, uid string, did []byte) (*SessionGrant, error) {
	if len(did) == 0 {
		s.metrics.RecordSessionStarted(false)
		return nil, ErrNoInstall
	}
	if !identity.ValidUID(uid) {
		s.metrics.RecordSessionStarted(false)
		return nil, ErrUIDRequired
	}

	adid := s.DeriveADID(did)
	now := time.Now()

	binding, err := s.lookupBinding(ctx, adid)
	switch {
	case err == nil:
		uid = binding.UID
		if err := s.store.TouchUserDevice(ctx, uid, adid, now); err != nil {
			s.metrics.RecordSessionStarted(false)
			return nil, fmt.Errorf("failed to refresh binding: %w", err)
		}
		binding.LastSeenAt = now
		_ = s.bindings.Set(ctx, bindingCacheKey(adid), *binding, s.bindingTTL)

	case errors.Is(err, store.ErrRecordNotFound):
		binding, err = s.createBinding(ctx, uid, did, adid, now)
		if err != nil {
			s.metrics.RecordSessionStarted(false)
			return nil, fmt.Errorf("failed to create binding: %w", err)
		}
		uid = binding.UID
		_ = s.bindings.Set(ctx, bindingCacheKey(adid), *binding, s.bindingTTL)

	default:
		s.metrics.RecordSessionStarted(false)
		return nil, fmt.Errorf("failed to look up binding: %w", err)
	}

	sess := &models.Session{
		SID:  uuid.New().String(),
		ADID: adid,
		UID:  uid,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		s.metrics.RecordSessionStarted(false)
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.metrics.RecordSessionStarted(true)
	return &SessionGrant{
		SID:  sess.SID,
		UID:  uid,
		ADID: adid,
		UDID: binding.UDID,
	}, nil
}

// EndSession soft-revokes a session. Idempotent: revoking an unknown or
// already-revoked sid succeeds, since the client outcome (no live session)
// is the same either way.
func (s *BindingService) EndSession(ctx context.Context, sid string) error {
	if sid == "" {
		return nil
	}

	err := s.store.RevokeSession(ctx, sid, time.Now())
	switch {
	case err == nil:
		s.metrics.RecordSessionRevoked("revoked")
		return nil
	case errors.Is(err, store.ErrSessionAlreadyRevoked):
		s.metrics.RecordSessionRevoked("already_revoked")
		return nil
	default:
		s.metrics.RecordSessionRevoked("error")
		return fmt.Errorf("failed to revoke session: %w", err)
	}
}

// createBinding inserts the first binding for a device. When a racing first
// bind from the same device already landed, the unique adid index rejects
// ours; the winning row is the durable identity, so we adopt its uid instead
// of keeping the one we arrived with.
func (s *BindingService) createBinding(
	ctx context.Context,
	uid string,
	did []byte,
	adid string,
	now time.Time,
) (*models.UserDevice, error) {
	binding := &models.UserDevice{
		UID:        uid,
		ADID:       adid,
		UDID:       s.deriveUDID(uid, did),
		LastSeenAt: now,
	}

	err := s.store.CreateUserDevice(ctx, binding)
	if err == nil {
		return binding, nil
	}
	if !errors.Is(err, store.ErrBindingExists) {
		return nil, err
	}

	binding, err = s.store.GetUserDeviceByADID(ctx, adid)
	if err != nil {
		return nil, err
	}
	if err := s.store.TouchUserDevice(ctx, binding.UID, adid, now); err != nil {
		return nil, err
	}
	binding.LastSeenAt = now
	return binding, nil
}

func (s *BindingService) lookupBinding(ctx context.Context, adid string) (*models.UserDevice, error) {
	if cached, err := s.bindings.Get(ctx, bindingCacheKey(adid)); err == nil {
		s.metrics.RecordBindingLookup(true)
		return &cached, nil
	}
	s.metrics.RecordBindingLookup(false)

	return s.store.GetUserDeviceByADID(ctx, adid)
}

func bindingCacheKey(adid string) string { return "binding:" + adid }
