package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// LoadJSON decodes the value under key into v. It reports false when the key
// is missing, unreadable or not valid JSON; in that case v is left untouched
// and the caller keeps its default. Corrupt values are logged, never returned.
func LoadJSON(ctx context.Context, st Store, key string, v any, logger *zerolog.Logger) bool {
	raw, err := st.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) && logger != nil {
			logger.Warn().Err(err).Str("key", key).Msg("storage read failed, using default")
		}
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		if logger != nil {
			logger.Warn().Err(err).Str("key", key).Msg("stored value is corrupt, using default")
		}
		return false
	}
	return true
}

// SaveJSON encodes v and stores it under key.
func SaveJSON(ctx context.Context, st Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := st.Put(ctx, key, data); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}
