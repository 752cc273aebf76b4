package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"maps"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/clovigo/internal/accounts/entity"
	"github.com/shandysiswandi/clovigo/internal/pkg/clock"
	"github.com/shandysiswandi/clovigo/internal/pkg/config"
	"github.com/shandysiswandi/clovigo/internal/pkg/goerror"
	"github.com/shandysiswandi/clovigo/internal/pkg/hash"
	"github.com/shandysiswandi/clovigo/internal/pkg/idempotency"
	"github.com/shandysiswandi/clovigo/internal/pkg/instrument"
	"github.com/shandysiswandi/clovigo/internal/pkg/jwt"
	"github.com/shandysiswandi/clovigo/internal/pkg/validator"
	"golang.org/x/crypto/bcrypt"
)

// fakeStore is an in-memory repoDB. WithUserLock serializes per store and
// restores a snapshot when fn fails, like a rolled back transaction.
type fakeStore struct {
	mu       sync.Mutex
	users    map[int64]entity.User
	profiles map[int64]map[entity.Role]entity.ProfileDetail
	otps     map[int64]entity.OTPRecord

	failCreate error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[int64]entity.User{},
		profiles: map[int64]map[entity.Role]entity.ProfileDetail{},
		otps:     map[int64]entity.OTPRecord{},
	}
}

func (f *fakeStore) UsernameExists(_ context.Context, username string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Username, username) {
			return &u, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (f *fakeStore) GetUserByIdentifier(ctx context.Context, identifier string) (*entity.User, error) {
	if u, err := f.GetUserByUsername(ctx, identifier); err == nil {
		return u, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	var found []entity.User
	for _, u := range f.users {
		if u.PhoneNo == identifier {
			found = append(found, u)
		}
	}
	if len(found) != 1 {
		return nil, goerror.ErrNotFound
	}
	return &found[0], nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &u, nil
}

func (f *fakeStore) GetProfile(_ context.Context, userID int64, role entity.Role) (*entity.ProfileDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID][role]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &p, nil
}

func (f *fakeStore) CreateAccount(_ context.Context, acc entity.NewAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	f.users[acc.User.ID] = acc.User
	f.profiles[acc.User.ID] = map[entity.Role]entity.ProfileDetail{acc.Profile.Role: acc.Profile}
	f.otps[acc.User.ID] = acc.OTP
	return nil
}

func (f *fakeStore) WithUserLock(ctx context.Context, userID int64, fn func(ctx context.Context, tx TxRepo) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.users[userID]; !ok {
		return goerror.ErrNotFound
	}

	users := maps.Clone(f.users)
	otps := maps.Clone(f.otps)
	profiles := make(map[int64]map[entity.Role]entity.ProfileDetail, len(f.profiles))
	for k, v := range f.profiles {
		profiles[k] = maps.Clone(v)
	}

	if err := fn(ctx, fakeTx{f}); err != nil {
		f.users, f.otps, f.profiles = users, otps, profiles
		return err
	}
	return nil
}

func (f *fakeStore) addUser(u entity.User, roles ...entity.Role) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
	f.profiles[u.ID] = map[entity.Role]entity.ProfileDetail{}
	for _, r := range roles {
		f.profiles[u.ID][r] = entity.ProfileDetail{Profile: entity.Profile{UserID: u.ID, Role: r}}
	}
}

func (f *fakeStore) otp(userID int64) (entity.OTPRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.otps[userID]
	return r, ok
}

// fakeTx runs with fakeStore.mu held.
type fakeTx struct{ f *fakeStore }

func (t fakeTx) GetOTP(_ context.Context, userID int64) (*entity.OTPRecord, error) {
	r, ok := t.f.otps[userID]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &r, nil
}

func (t fakeTx) SaveOTP(_ context.Context, rec entity.OTPRecord) error {
	t.f.otps[rec.UserID] = rec
	return nil
}

func (t fakeTx) DeleteOTP(_ context.Context, userID int64) error {
	delete(t.f.otps, userID)
	return nil
}

func (t fakeTx) ActivateUser(_ context.Context, userID int64) error {
	u := t.f.users[userID]
	u.IsActive = true
	t.f.users[userID] = u
	return nil
}

func (t fakeTx) ProfileRoles(_ context.Context, userID int64) ([]entity.Role, error) {
	var roles []entity.Role
	for r := range t.f.profiles[userID] {
		roles = append(roles, r)
	}
	return roles, nil
}

func (t fakeTx) ActivateProfile(_ context.Context, userID int64, role entity.Role, isOTP, isActive bool) error {
	p, ok := t.f.profiles[userID][role]
	if !ok {
		return goerror.ErrNotFound
	}
	p.IsOTP, p.IsActive = isOTP, isActive
	t.f.profiles[userID][role] = p
	return nil
}

type fakeMessaging struct {
	mu     sync.Mutex
	events []OTPDispatchEvent
	err    error
}

func (m *fakeMessaging) PublishOTPDispatch(_ context.Context, ev OTPDispatchEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *fakeMessaging) last(t *testing.T) OTPDispatchEvent {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.events)
	return m.events[len(m.events)-1]
}

type fakeDocuments struct {
	mu      sync.Mutex
	stored  map[string][]byte
	removed []string
	err     error
}

func newFakeDocuments() *fakeDocuments { return &fakeDocuments{stored: map[string][]byte{}} }

func (d *fakeDocuments) Upload(_ context.Context, folder string, userID int64, doc Document) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return "", d.err
	}
	data, err := io.ReadAll(doc.Body)
	if err != nil {
		return "", err
	}
	key := folder + "/" + strconv.FormatInt(userID, 10) + "-" + doc.Filename
	d.stored[key] = data
	return key, nil
}

func (d *fakeDocuments) Remove(_ context.Context, keys ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, k := range keys {
		delete(d.stored, k)
		d.removed = append(d.removed, k)
	}
}

func (d *fakeDocuments) URL(_ context.Context, key string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.stored[key]; !ok {
		return "", errors.New("no such document")
	}
	return "https://files.example/" + key, nil
}

type fakeIdempotency struct {
	mu   sync.Mutex
	done map[string][]byte
}

func (i *fakeIdempotency) Do(ctx context.Context, key string, fn func(context.Context) ([]byte, error), _ ...idempotency.Option) ([]byte, bool, error) {
	i.mu.Lock()
	if res, ok := i.done[key]; ok {
		i.mu.Unlock()
		return res, true, nil
	}
	i.mu.Unlock()

	res, err := fn(ctx)
	if err != nil {
		return nil, false, err
	}
	if !json.Valid(res) {
		return nil, false, idempotency.ErrInvalidState
	}

	i.mu.Lock()
	i.done[key] = res
	i.mu.Unlock()
	return res, false, nil
}

// seqCodes hands out codes in order, then repeats the last one.
type seqCodes struct {
	mu    sync.Mutex
	codes []string
	n     int
}

func (s *seqCodes) Generate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.codes[min(s.n, len(s.codes)-1)]
	s.n++
	return c, nil
}

type seqIDs struct {
	mu sync.Mutex
	n  int64
}

func (s *seqIDs) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return 1000 + s.n
}

type fakeJWT struct{}

func (fakeJWT) Issue(sub jwt.Subject) (jwt.Pair, error) {
	id := strconv.FormatInt(sub.UserID, 10)
	return jwt.Pair{Access: "access-" + id + "-" + sub.Role, Refresh: "refresh-" + id}, nil
}

func (fakeJWT) Verify(string, jwt.Kind) (jwt.Claims, error) { return jwt.Claims{}, jwt.ErrInvalidToken }

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

const testConfig = `
modules:
  accounts:
    documents:
      max_bytes: 1024
      allowed_types: application/pdf,image/png,image/jpeg
    idempotency_retention_hours: 24
`

type harness struct {
	uc    *Usecase
	db    *fakeStore
	mq    *fakeMessaging
	docs  *fakeDocuments
	clock *clock.Manual
	codes *seqCodes
	hmac  hash.Hash
	bcr   hash.Hash
}

func newHarness(t *testing.T, codes ...string) *harness {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfig))
	require.NoError(t, err)
	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	if len(codes) == 0 {
		codes = []string{"123456"}
	}

	h := &harness{
		db:    newFakeStore(),
		mq:    &fakeMessaging{},
		docs:  newFakeDocuments(),
		clock: clock.NewManual(testNow),
		codes: &seqCodes{codes: codes},
		hmac:  hash.NewHMACSHA256("test-secret"),
		bcr:   hash.NewBcrypt(bcrypt.MinCost, ""),
	}

	h.uc = New(Dependency{
		RepoDB:        h.db,
		RepoMessaging: h.mq,
		RepoDocument:  h.docs,
		Idempotency:   &fakeIdempotency{done: map[string][]byte{}},
		Validator:     v,
		Config:        cfg,
		Policy:        entity.DefaultOTPPolicy(),
		Code:          h.codes,
		HMAC:          h.hmac,
		Bcrypt:        h.bcr,
		UID:           &seqIDs{},
		Clock:         h.clock,
		JWT:           fakeJWT{},
		Instrument:    instrument.NewNoop(),
	})

	return h
}

// seedDormant stores an inactive user with the given roles and a fresh OTP
// record for code.
func (h *harness) seedDormant(t *testing.T, id int64, username, code string, roles ...entity.Role) {
	t.Helper()

	pw, err := h.bcr.Hash("secret-pass")
	require.NoError(t, err)
	h.db.addUser(entity.User{ID: id, Username: username, PhoneNo: "+9198765" + strconv.FormatInt(id%100000, 10), Password: string(pw)}, roles...)

	sum, err := h.hmac.Hash(code)
	require.NoError(t, err)
	h.db.mu.Lock()
	h.db.otps[id] = entity.NewOTPRecord(id, string(sum), h.clock.Now(), entity.DefaultOTPPolicy())
	h.db.mu.Unlock()
}

func requireCode(t *testing.T, err error, want goerror.Code) *goerror.Error {
	t.Helper()
	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, want, gerr.Code(), gerr.String())
	return gerr
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

// fieldsOf returns the per-field messages of a validation or business error.
func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr validator.V10ValidationError
	if errors.As(err, &verr) {
		return verr.Values()
	}
	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	return gerr.Fields()
}
