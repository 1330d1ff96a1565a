package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"filippo.io/age"
)

// EnableEncryption encrypts every settings file in the directory with the
// given passphrase and drops the marker and verification files.
func (s *Storage) EnableEncryption(passphrase string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.encrypted {
		return fmt.Errorf("encryption is already enabled")
	}
	if len(passphrase) < 8 {
		return fmt.Errorf("passphrase must be at least 8 characters")
	}

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return fmt.Errorf("failed to create recipient: %w", err)
	}
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return fmt.Errorf("failed to create identity: %w", err)
	}

	verify, err := encryptData([]byte(verifyMagic), recipient)
	if err != nil {
		return fmt.Errorf("failed to encrypt verification file: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.baseDir, verifyFile), verify, 0644); err != nil {
		return fmt.Errorf("failed to write verification file: %w", err)
	}

	// The settings directory is flat; encrypt each plaintext JSON file in place.
	files, err := filepath.Glob(filepath.Join(s.baseDir, "*.json"))
	if err != nil {
		return err
	}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if isAgeEncrypted(data) {
			continue
		}
		encrypted, err := encryptData(data, recipient)
		if err != nil {
			return fmt.Errorf("failed to encrypt %s: %w", path, err)
		}
		if err := atomicWrite(path, encrypted, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	if err := os.WriteFile(filepath.Join(s.baseDir, markerFile), []byte{}, 0644); err != nil {
		return fmt.Errorf("failed to write marker file: %w", err)
	}

	s.encrypted = true
	s.identity = identity
	s.recipient = recipient
	return nil
}

// DisableEncryption decrypts every settings file and removes the marker and
// verification files. The storage must be unlocked first.
func (s *Storage) DisableEncryption() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.encrypted {
		return nil
	}
	if s.identity == nil {
		return fmt.Errorf("storage is locked")
	}

	files, err := filepath.Glob(filepath.Join(s.baseDir, "*.json"))
	if err != nil {
		return err
	}
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		if !isAgeEncrypted(data) {
			continue
		}
		decrypted, err := decryptData(data, s.identity)
		if err != nil {
			return fmt.Errorf("failed to decrypt %s: %w", path, err)
		}
		if err := atomicWrite(path, decrypted, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	os.Remove(filepath.Join(s.baseDir, markerFile))
	os.Remove(filepath.Join(s.baseDir, verifyFile))

	s.encrypted = false
	s.identity = nil
	s.recipient = nil
	return nil
}
