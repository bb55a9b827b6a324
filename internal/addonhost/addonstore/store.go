// Package addonstore is the concrete, SQLite-backed implementation of
// the external persisted-addon-package collaborator: package transport
// and unpacking happen upstream of the host, which only ever talks to
// the Store interface the Loader and Dev Manager expect. This package
// exists so the module has a real, in-repo implementation of that
// boundary instead of an interface with no concrete user.
package addonstore

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"addonhost/internal/addonhost"
	hostcrypto "addonhost/internal/crypto"
)

// Open connects to (creating if absent) the SQLite database at path,
// with foreign-key enforcement on every connection (so the schema's ON
// DELETE CASCADE clauses take effect), enabling WAL mode the way the
// host's other SQLite-backed stores do.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create addon store directory %s: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open addon store at %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to addon store: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		log.Printf("addonstore: could not enable WAL mode: %v", err)
	}
	return db, nil
}

// Migrate creates the addon manifest/file tables if they don't exist.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS addon_manifests (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			version     TEXT NOT NULL,
			main        TEXT NOT NULL,
			sdk_version TEXT,
			enabled     INTEGER NOT NULL DEFAULT 1,
			permissions TEXT,
			signature   TEXT,
			installed_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS addon_files (
			addon_id TEXT NOT NULL,
			name     TEXT NOT NULL,
			content  TEXT NOT NULL,
			is_main  INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (addon_id, name),
			FOREIGN KEY (addon_id) REFERENCES addon_manifests(id) ON DELETE CASCADE
		);
	`)
	if err != nil {
		return fmt.Errorf("addon store migration: %w", err)
	}
	return nil
}

// Store lists installed addon bundles and verifies optional manifest
// signatures before handing them to the Loader.
type Store struct {
	db        *sql.DB
	trustedKey string // base64 Ed25519 public key; empty disables verification
}

// New wraps db. trustedKeyBase64 may be empty, in which case manifest
// signatures are ignored (an installed bundle is trusted unconditionally,
// matching the out-of-the-box behavior of an external unpacker that
// hands the host already-validated input).
func New(db *sql.DB, trustedKeyBase64 string) *Store {
	return &Store{db: db, trustedKey: trustedKeyBase64}
}

// List returns every installed addon bundle, in no particular order.
// A manifest with an unverifiable signature is skipped and logged
// rather than failing the whole listing — one bad addon must not block
// the rest from loading.
func (s *Store) List() ([]addonhost.Bundle, error) {
	rows, err := s.db.Query(`SELECT id, name, version, main, COALESCE(sdk_version,''), enabled, COALESCE(permissions,''), COALESCE(signature,'') FROM addon_manifests`)
	if err != nil {
		return nil, fmt.Errorf("list installed addons: %w", err)
	}
	defer rows.Close()

	var bundles []addonhost.Bundle
	for rows.Next() {
		var m addonhost.Manifest
		var enabled int
		var permissionsJSON, signature string
		if err := rows.Scan(&m.ID, &m.Name, &m.Version, &m.Main, &m.SDKVersion, &enabled, &permissionsJSON, &signature); err != nil {
			return nil, fmt.Errorf("scan addon manifest: %w", err)
		}
		m.Enabled = enabled != 0
		m.Permissions = decodePermissions(permissionsJSON)

		if signature != "" && s.trustedKey != "" {
			if !s.verifyManifestSignature(m, signature) {
				log.Printf("addonstore: addon %s failed signature verification, skipping", m.ID)
				continue
			}
		}

		files, err := s.files(m.ID)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, addonhost.Bundle{Manifest: m, Files: files})
	}
	return bundles, rows.Err()
}

func (s *Store) files(addonID string) ([]addonhost.File, error) {
	rows, err := s.db.Query(`SELECT name, content, is_main FROM addon_files WHERE addon_id = ?`, addonID)
	if err != nil {
		return nil, fmt.Errorf("list files for addon %s: %w", addonID, err)
	}
	defer rows.Close()

	var files []addonhost.File
	for rows.Next() {
		var f addonhost.File
		var isMain int
		if err := rows.Scan(&f.Name, &f.Content, &isMain); err != nil {
			return nil, fmt.Errorf("scan addon file: %w", err)
		}
		f.IsMain = isMain != 0
		files = append(files, f)
	}
	return files, rows.Err()
}

// verifyManifestSignature checks sig (base64) against the manifest's
// id+version+main fields using the store's trusted public key.
func (s *Store) verifyManifestSignature(m addonhost.Manifest, sigBase64 string) bool {
	sig, err := decodeSignature(sigBase64)
	if err != nil {
		return false
	}
	msg := []byte(m.ID + ":" + m.Version + ":" + m.Main)
	return hostcrypto.VerifySignature(s.trustedKey, msg, sig)
}

// Install stores a new bundle, generating an id via uuid when the
// manifest doesn't already declare a stable one.
func (s *Store) Install(bundle addonhost.Bundle) (string, error) {
	id := bundle.Manifest.ID
	if id == "" {
		id = uuid.NewString()
	}

	permissionsJSON := encodePermissions(bundle.Manifest.Permissions)

	_, err := s.db.Exec(`
		INSERT INTO addon_manifests (id, name, version, main, sdk_version, enabled, permissions)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, version = excluded.version, main = excluded.main,
			sdk_version = excluded.sdk_version, enabled = excluded.enabled, permissions = excluded.permissions
	`, id, bundle.Manifest.Name, bundle.Manifest.Version, bundle.Manifest.Main, bundle.Manifest.SDKVersion, boolToInt(bundle.Manifest.Enabled), permissionsJSON)
	if err != nil {
		return "", fmt.Errorf("install addon %s: %w", id, err)
	}

	for _, f := range bundle.Files {
		if _, err := s.db.Exec(`
			INSERT INTO addon_files (addon_id, name, content, is_main)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(addon_id, name) DO UPDATE SET content = excluded.content, is_main = excluded.is_main
		`, id, f.Name, f.Content, boolToInt(f.IsMain)); err != nil {
			return "", fmt.Errorf("install addon %s file %s: %w", id, f.Name, err)
		}
	}
	return id, nil
}

// Remove deletes an installed addon bundle entirely.
func (s *Store) Remove(addonID string) error {
	if _, err := s.db.Exec(`DELETE FROM addon_manifests WHERE id = ?`, addonID); err != nil {
		return fmt.Errorf("remove addon %s: %w", addonID, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
