package whatsapp

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
)

// MeowFactory builds whatsmeow-backed clients. Auth state defaults to one
// sqlite file per user under authDir; when pgURL is set all users share one
// Postgres container and cleanup deletes device rows instead of files.
type MeowFactory struct {
	authDir    string
	pgURL      string
	deviceName string

	mu         sync.Mutex
	containers map[string]*sqlstore.Container
	shared     *sqlstore.Container
	devices    map[string]*store.Device
}

func NewMeowFactory(authDir, pgURL, deviceName string) *MeowFactory {
	return &MeowFactory{
		authDir:    authDir,
		pgURL:      pgURL,
		deviceName: deviceName,
		containers: make(map[string]*sqlstore.Container),
		devices:    make(map[string]*store.Device),
	}
}

func (f *MeowFactory) sqlitePath(userID string) string {
	return filepath.Join(f.authDir, fmt.Sprintf("session-%s.db", userID))
}

func (f *MeowFactory) dbLog(userID string) waLog.Logger {
	tag := userID
	if len(tag) > 8 {
		tag = tag[:8]
	}
	return waLog.Stdout("DB-"+tag, "WARN", true)
}

// container returns the auth store for one user, opening it on first use.
// Caller must hold f.mu.
func (f *MeowFactory) container(ctx context.Context, userID string) (*sqlstore.Container, error) {
	if f.pgURL != "" {
		if f.shared != nil {
			return f.shared, nil
		}
		c, err := sqlstore.New(ctx, "postgres", f.pgURL, f.dbLog("shared"))
		if err != nil {
			return nil, fmt.Errorf("open shared auth store: %w", err)
		}
		f.shared = c
		return c, nil
	}

	if c, ok := f.containers[userID]; ok {
		return c, nil
	}
	if err := os.MkdirAll(f.authDir, 0755); err != nil {
		return nil, fmt.Errorf("create auth dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", f.sqlitePath(userID))
	c, err := sqlstore.New(ctx, "sqlite3", dsn, f.dbLog(userID))
	if err != nil {
		return nil, fmt.Errorf("open auth store for %s: %w", userID, err)
	}
	f.containers[userID] = c
	return c, nil
}

// NewClient prepares a whatsmeow client scoped to one user. The device is
// reused when persisted auth state exists, otherwise a fresh one forces a
// QR login.
func (f *MeowFactory) NewClient(ctx context.Context, userID string, ev Events) (Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	container, err := f.container(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Device name must be set before the device is created.
	store.DeviceProps.Os = proto.String(f.deviceName)

	device, err := container.GetFirstDevice(ctx)
	if err == sql.ErrNoRows {
		device = container.NewDevice()
	} else if err != nil {
		return nil, fmt.Errorf("load device for %s: %w", userID, err)
	}
	if device == nil {
		device = container.NewDevice()
	}
	f.devices[userID] = device

	return newMeowClient(userID, device, ev), nil
}

// RemoveAuthState deletes the persisted login material for one user:
// sqlite files (plus -wal/-shm siblings) in the default mode, the device
// rows in Postgres mode.
func (f *MeowFactory) RemoveAuthState(userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pgURL != "" {
		device, ok := f.devices[userID]
		if !ok || f.shared == nil {
			return nil
		}
		delete(f.devices, userID)
		if err := f.shared.DeleteDevice(context.Background(), device); err != nil {
			return fmt.Errorf("delete device rows for %s: %w", userID, err)
		}
		return nil
	}

	if c, ok := f.containers[userID]; ok {
		delete(f.containers, userID)
		if err := c.Close(); err != nil {
			log.Printf("⚠ failed to close auth store for %s: %v", userID, err)
		}
	}
	delete(f.devices, userID)

	path := f.sqlitePath(userID)
	var firstErr error
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WipeAll removes every user's persisted auth state. Called once at process
// start in the hardened configuration.
func (f *MeowFactory) WipeAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pgURL != "" {
		c, err := f.container(ctx, "")
		if err != nil {
			return err
		}
		devices, err := c.GetAllDevices(ctx)
		if err != nil {
			return fmt.Errorf("list devices: %w", err)
		}
		for _, d := range devices {
			if err := c.DeleteDevice(ctx, d); err != nil {
				return fmt.Errorf("delete device %v: %w", d.ID, err)
			}
		}
		return nil
	}

	entries, err := os.ReadDir(f.authDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "session-") {
			continue
		}
		if err := os.Remove(filepath.Join(f.authDir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
