package blink

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cweiture/blink-lapse/pkg/models"
)

const commandPollInterval = time.Second

// CommandResponse is returned by the thumbnail trigger endpoints.
type CommandResponse struct {
	ID        int    `json:"id"`
	NetworkID int    `json:"network_id"`
	Command   string `json:"command"`
	State     string `json:"state"`
}

// CommandStatus is the body of GET /network/<net>/command/<id>.
type CommandStatus struct {
	Complete  bool   `json:"complete"`
	Status    int    `json:"status"` // 0 is success once complete
	StatusMsg string `json:"status_msg"`
}

// Snapshot asks the cloud for a fresh still frame and returns its bytes.
// The flow mirrors what the mobile app does: trigger a new thumbnail,
// wait for the command to finish, re-pull the homescreen for the new
// thumbnail path, then download the image.
func (s *Session) Snapshot(ctx context.Context, cam models.Camera) ([]byte, error) {
	cmd, err := s.Client.TriggerThumbnail(ctx, cam)
	if err != nil {
		return nil, err
	}

	if cmd.ID != 0 {
		if err := s.Client.WaitForCommand(ctx, cam.NetworkID, cmd.ID, s.Settle); err != nil {
			return nil, err
		}
	}

	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}

	thumbnail := cam.Thumbnail
	if fresh, ok := s.camera(cam.ID); ok {
		thumbnail = fresh.Thumbnail
	}

	return s.Client.GetImage(ctx, thumbnail)
}

// TriggerThumbnail starts a new thumbnail capture. Classic cameras,
// owls, and doorbells each use a different endpoint.
func (c *Client) TriggerThumbnail(ctx context.Context, cam models.Camera) (*CommandResponse, error) {
	var path string
	switch cam.Kind {
	case models.KindOwl:
		path = fmt.Sprintf("/api/v1/accounts/%d/networks/%d/owls/%d/thumbnail", c.AccountID, cam.NetworkID, cam.ID)
	case models.KindDoorbell:
		path = fmt.Sprintf("/api/v1/accounts/%d/networks/%d/doorbells/%d/thumbnail", c.AccountID, cam.NetworkID, cam.ID)
	default:
		path = fmt.Sprintf("/network/%d/camera/%d/thumbnail", cam.NetworkID, cam.ID)
	}

	var respData CommandResponse

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetResult(&respData).
		Post(path)

	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		if isAuthStatus(resp.StatusCode()) {
			return nil, fmt.Errorf("%w: thumbnail trigger: %s", ErrAuth, resp.String())
		}
		return nil, fmt.Errorf("failed to trigger thumbnail for %q: %s", cam.Name, resp.String())
	}

	return &respData, nil
}

// WaitForCommand polls the command status until it completes or the settle
// window runs out. A window expiry is not an error: the refreshed
// thumbnail may simply be a tick older than ideal, which beats losing the
// frame.
func (c *Client) WaitForCommand(ctx context.Context, networkID, commandID int, window time.Duration) error {
	deadline := time.Now().Add(window)

	for {
		st, err := c.CommandStatus(ctx, networkID, commandID)
		if err != nil {
			return err
		}

		if st.Complete {
			if st.Status != 0 {
				if strings.Contains(strings.ToLower(st.StatusMsg), "offline") {
					return fmt.Errorf("%w: %s", ErrDeviceOffline, st.StatusMsg)
				}
				return fmt.Errorf("thumbnail command failed: %s", st.StatusMsg)
			}
			return nil
		}

		if time.Now().After(deadline) {
			log.Debug().Int("command", commandID).Dur("window", window).Msg("command still pending, using last thumbnail")
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(commandPollInterval):
		}
	}
}

// CommandStatus fetches the state of a previously issued network command.
func (c *Client) CommandStatus(ctx context.Context, networkID, commandID int) (*CommandStatus, error) {
	var respData CommandStatus

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetResult(&respData).
		Get(fmt.Sprintf("/network/%d/command/%d", networkID, commandID))

	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		if isAuthStatus(resp.StatusCode()) {
			return nil, fmt.Errorf("%w: command status: %s", ErrAuth, resp.String())
		}
		return nil, fmt.Errorf("failed to get command status: %s", resp.String())
	}

	return &respData, nil
}

// GetImage downloads the JPEG behind a homescreen thumbnail path.
func (c *Client) GetImage(ctx context.Context, thumbnail string) ([]byte, error) {
	if thumbnail == "" {
		return nil, errors.New("camera has no thumbnail path")
	}

	// Older firmware reports a bare path that needs the extension added;
	// newer paths already carry ".jpg" or an ext= query parameter.
	path := thumbnail
	if !strings.HasSuffix(path, ".jpg") && !strings.Contains(path, "ext=") {
		path += ".jpg"
	}

	resp, err := c.HTTP.R().
		SetContext(ctx).
		Get(path)

	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		if isAuthStatus(resp.StatusCode()) {
			return nil, fmt.Errorf("%w: image fetch: %s", ErrAuth, resp.String())
		}
		return nil, fmt.Errorf("failed to fetch image: %s", resp.String())
	}

	if len(resp.Body()) == 0 {
		return nil, errors.New("image response body is empty")
	}

	return resp.Body(), nil
}
