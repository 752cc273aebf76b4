package document

import (
	"context"
	"log/slog"
	"path"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/codes"

	"github.com/shandysiswandi/clovigo/internal/accounts/usecase"
	"github.com/shandysiswandi/clovigo/internal/pkg/hash"
	"github.com/shandysiswandi/clovigo/internal/pkg/instrument"
	"github.com/shandysiswandi/clovigo/internal/pkg/storage"
)

// Store keeps signup documents in object storage under
// <folder>/<hmac(user id/filename)><ext>. A retried upload of the same file
// lands on the same key.
type Store struct {
	storage   storage.Storage
	hmac      hash.Hash
	urlExpiry time.Duration
	ins       instrument.Instrumentation
}

func NewStore(s storage.Storage, hmac hash.Hash, urlExpiry time.Duration, ins instrument.Instrumentation) *Store {
	if urlExpiry <= 0 {
		urlExpiry = 15 * time.Minute
	}
	return &Store{storage: s, hmac: hmac, urlExpiry: urlExpiry, ins: ins}
}

func (s *Store) Upload(ctx context.Context, folder string, userID int64, doc usecase.Document) (string, error) {
	ctx, span := s.ins.Tracer("accounts.outbound.document").Start(ctx, "Upload")
	defer span.End()

	name := path.Base(doc.Filename)
	sum, err := s.hmac.Hash(strconv.FormatInt(userID, 10) + "/" + name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	key := folder + "/" + string(sum) + strings.ToLower(path.Ext(name))

	size := doc.Size
	if size <= 0 {
		size = -1
	}

	if _, err := s.storage.Put(ctx, key, doc.Body, storage.PutOptions{
		Size:        size,
		ContentType: doc.ContentType,
		Metadata:    map[string]string{"original-filename": name},
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return key, nil
}

// Remove deletes keys on a best-effort basis; failures are only logged.
func (s *Store) Remove(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
			slog.WarnContext(ctx, "failed to remove document", "key", key, "error", err)
		}
	}
}

func (s *Store) URL(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", storage.ErrObjectNotFound
	}
	return s.storage.PresignGet(ctx, key, s.urlExpiry)
}
