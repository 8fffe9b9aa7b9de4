package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"marketwatch/internal/components/osutil"
	"os"
)

// FileStore keeps the credential in a json file only the current user can read.
type FileStore struct {
	path string
}

func NewFileStore(path string) FileStore {
	return FileStore{path: path}
}

func (s FileStore) Load(ctx context.Context) (Credential, error) {
	contents, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return Credential{}, ErrNoCredential
	}
	if err != nil {
		return Credential{}, err
	}

	var cred Credential
	err = json.Unmarshal(contents, &cred)
	if err != nil {
		return Credential{}, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if cred.SessionID == "" {
		return Credential{}, ErrNoCredential
	}
	return cred, nil
}

func (s FileStore) Save(ctx context.Context, cred Credential) error {
	contents, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}
	return osutil.WriteFileAtomic(s.path, append(contents, '\n'), osutil.PrivateFile)
}
