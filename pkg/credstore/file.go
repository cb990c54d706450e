package credstore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/shopsync/internal/domain/auth"
)

// FileStore persists the token pair as a JSON file with owner-only
// permissions. Writes go through a temp file and rename so a crash cannot
// leave a torn pair on disk.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore at the given path. Parent directories
// are created on the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context) (*auth.TokenPair, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, errors.Wrap(err, "read credentials")
	}

	var pair auth.TokenPair
	d := jx.DecodeBytes(data)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "accessToken":
			pair.AccessToken, err = d.Str()
		case "refreshToken":
			pair.RefreshToken, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "decode credentials")
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return nil, ErrNoCredentials
	}
	return &pair, nil
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, pair *auth.TokenPair) error {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("accessToken")
	e.Str(pair.AccessToken)
	e.FieldStart("refreshToken")
	e.Str(pair.RefreshToken)
	e.ObjEnd()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "create credentials dir")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, e.Bytes(), 0o600); err != nil {
		return errors.Wrap(err, "write credentials")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "replace credentials")
	}
	return nil
}

// Clear implements Store. Clearing credentials that were never saved is not
// an error.
func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove credentials")
	}
	return nil
}
