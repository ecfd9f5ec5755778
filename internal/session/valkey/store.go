package sessionvalkey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"

	"github.com/eventbot/dashboard/internal/serviceerr"
)

var ErrNonPositiveTTL = errors.New("object expires before it is stored")

type store struct {
	valkey valkey.Client
	prefix string
}

func newStore(valkeyClient valkey.Client, prefix string) *store {
	prefix = strings.TrimSuffix(prefix, ":")
	return &store{
		valkey: valkeyClient,
		prefix: prefix,
	}
}

func (s *store) Get(ctx context.Context, objectType ObjectType, objectID string, decodeInto any) error {
	bytes, err := s.valkey.Do(ctx, s.valkey.B().Get().Key(s.key(objectType, objectID)).Build()).AsBytes()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return errors.Join(err, serviceerr.ErrNotFound)
		}

		return fmt.Errorf("executing get command: %w", err)
	}

	if err := s.decode(bytes, decodeInto); err != nil {
		return fmt.Errorf("decoding %s: %w", objectType, err)
	}

	return nil
}

// Set stores the value under the key and lets Valkey expire it after ttl.
func (s *store) Set(ctx context.Context, objectType ObjectType, objectID string, val any, ttl time.Duration) error {
	if ttl < time.Millisecond {
		return ErrNonPositiveTTL
	}

	bytes, err := s.encode(val)
	if err != nil {
		return fmt.Errorf("encoding data: %w", err)
	}

	cmd := s.valkey.B().Set().
		Key(s.key(objectType, objectID)).
		Value(valkey.BinaryString(bytes)).
		PxMilliseconds(ttl.Milliseconds()).
		Build()
	if err := s.valkey.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("executing set command: %w", err)
	}

	return nil
}

func (s *store) Destroy(ctx context.Context, objectType ObjectType, objectID string) error {
	if err := s.valkey.Do(ctx, s.valkey.B().Del().Key(s.key(objectType, objectID)).Build()).Error(); err != nil {
		return fmt.Errorf("executing del command: %w", err)
	}

	return nil
}

func (s *store) key(objectType ObjectType, objectID string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, objectType, objectID)
}

func (s *store) encode(v any) ([]byte, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshaling json: %w", err)
	}

	return bytes, nil
}

func (s *store) decode(data []byte, into any) error {
	if err := json.Unmarshal(data, into); err != nil {
		return fmt.Errorf("unmarshaling json: %w", err)
	}

	return nil
}
