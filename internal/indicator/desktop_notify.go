package indicator

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// desktopNotification is one freedesktop notification sent over DBus via
// busctl. Reusing the ReplaceID of a previous notification makes the server
// update it in place instead of stacking a new one.
type desktopNotification struct {
	AppName   string
	ReplaceID uint32
	Summary   string
	Body      string
	Urgent    bool
	TimeoutMS int
}

// send issues the Notify call and returns the server-assigned ID.
func (m desktopNotification) send(ctx context.Context) (uint32, error) {
	urgency := "1"
	if m.Urgent {
		urgency = "2"
	}
	args := []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"Notify",
		"susssasa{sv}i",
		m.AppName,
		strconv.FormatUint(uint64(m.ReplaceID), 10),
		"",
		m.Summary,
		m.Body,
		"0", // actions array length
		"1", // hints map length
		"urgency", "y", urgency,
		strconv.Itoa(m.TimeoutMS),
	}

	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	if err != nil {
		return 0, busctlError("desktop notify", out, err)
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", strings.TrimSpace(string(out)))
	}

	value, parseErr := strconv.ParseUint(fields[1], 10, 32)
	if parseErr != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], parseErr)
	}
	return uint32(value), nil
}

// desktopDismiss requests explicit close by notification ID.
func desktopDismiss(ctx context.Context, id uint32) error {
	args := []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"CloseNotification",
		"u",
		strconv.FormatUint(uint64(id), 10),
	}

	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	if err != nil {
		return busctlError("desktop dismiss", out, err)
	}
	return nil
}

func busctlError(op string, out []byte, err error) error {
	trimmed := strings.TrimSpace(string(out))
	if trimmed == "" {
		return fmt.Errorf("%s failed: %w", op, err)
	}
	return fmt.Errorf("%s failed: %w (%s)", op, err, trimmed)
}
