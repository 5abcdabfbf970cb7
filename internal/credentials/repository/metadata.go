package repository

import (
	"encoding/json"
	"strings"

	"github.com/allisson/credentials/internal/credentials/domain"
	apperrors "github.com/allisson/credentials/internal/errors"
)

// encodeMetadata serializes metadata into the persisted JSON shape.
func encodeMetadata(metadata *domain.Metadata) ([]byte, error) {
	data, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode credential metadata")
	}
	return data, nil
}

func decodeMetadata(data []byte) (domain.Metadata, error) {
	var metadata domain.Metadata
	if err := json.Unmarshal(data, &metadata); err != nil {
		return domain.Metadata{}, apperrors.Wrap(err, "failed to decode credential metadata")
	}
	if metadata.Tags == nil {
		metadata.Tags = []string{}
	}
	return metadata, nil
}

// nullableScope returns the scope column value.
func nullableScope(metadata *domain.Metadata) any {
	if metadata.Scope == nil || metadata.Scope.IsZero() {
		return nil
	}
	return metadata.Scope.String()
}

// likePrefix escapes LIKE wildcards in prefix and appends '%'.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
