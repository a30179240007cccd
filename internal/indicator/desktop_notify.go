package indicator

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsDest = "org.freedesktop.Notifications"
	notificationsPath = dbus.ObjectPath("/org/freedesktop/Notifications")
)

// desktopBus is the part of org.freedesktop.Notifications the desktop backend
// calls.
type desktopBus interface {
	Notify(ctx context.Context, appName string, replaceID uint32, summary string, timeoutMS int32) (uint32, error)
	CloseNotification(ctx context.Context, id uint32) error
}

// sessionBus talks to the notification daemon over the shared session bus
// connection.
type sessionBus struct{}

func (sessionBus) object() (dbus.BusObject, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return conn.Object(notificationsDest, notificationsPath), nil
}

// Notify returns the daemon-assigned id. Passing it back as replaceID updates
// the notification in place.
func (b sessionBus) Notify(ctx context.Context, appName string, replaceID uint32, summary string, timeoutMS int32) (uint32, error) {
	obj, err := b.object()
	if err != nil {
		return 0, err
	}
	var id uint32
	call := obj.CallWithContext(ctx, notificationsDest+".Notify", 0,
		appName, replaceID, "", summary, "", []string{}, map[string]dbus.Variant{}, timeoutMS)
	if err := call.Store(&id); err != nil {
		return 0, fmt.Errorf("desktop notify: %w", err)
	}
	return id, nil
}

func (b sessionBus) CloseNotification(ctx context.Context, id uint32) error {
	obj, err := b.object()
	if err != nil {
		return err
	}
	if err := obj.CallWithContext(ctx, notificationsDest+".CloseNotification", 0, id).Err; err != nil {
		return fmt.Errorf("desktop dismiss: %w", err)
	}
	return nil
}
