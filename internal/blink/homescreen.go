package blink

import (
	"context"
	"fmt"
	"time"

	"github.com/cweiture/blink-lapse/pkg/models"
)

// Session is an authenticated view of one account. Refresh pulls the
// homescreen document; the accessors serve the last refreshed state.
type Session struct {
	Client *Client
	Settle time.Duration // how long a camera gets to wake, shoot, and upload

	cameras     []models.Camera
	networks    []models.Network
	syncModules []models.SyncModule
}

// Refresh re-pulls the homescreen and merges classic cameras, owls, and
// doorbells into a single camera list, tagged with the kind that decides
// their thumbnail endpoint.
func (s *Session) Refresh(ctx context.Context) error {
	hs, err := s.Client.GetHomescreen(ctx)
	if err != nil {
		return err
	}

	cams := make([]models.Camera, 0, len(hs.Cameras)+len(hs.Owls)+len(hs.Doorbells))
	for _, cam := range hs.Cameras {
		cam.Kind = models.KindCamera
		cams = append(cams, cam)
	}
	for _, cam := range hs.Owls {
		cam.Kind = models.KindOwl
		cams = append(cams, cam)
	}
	for _, cam := range hs.Doorbells {
		cam.Kind = models.KindDoorbell
		cams = append(cams, cam)
	}

	s.cameras = cams
	s.networks = hs.Networks
	s.syncModules = hs.SyncModules
	return nil
}

// Cameras returns the merged camera list from the last Refresh.
func (s *Session) Cameras() []models.Camera {
	return s.cameras
}

func (s *Session) Networks() []models.Network {
	return s.networks
}

func (s *Session) SyncModules() []models.SyncModule {
	return s.syncModules
}

// camera looks up a device by ID in the last refreshed list.
//
// Refresh replaces thumbnail paths, so snapshot code must re-resolve the
// device after triggering a new thumbnail.
func (s *Session) camera(id int) (models.Camera, bool) {
	for _, cam := range s.cameras {
		if cam.ID == id {
			return cam, true
		}
	}
	return models.Camera{}, false
}

// GetHomescreen fetches the account-wide device document.
func (c *Client) GetHomescreen(ctx context.Context) (*models.Homescreen, error) {
	var respData models.Homescreen

	resp, err := c.HTTP.R().
		SetContext(ctx).
		SetResult(&respData).
		Get(fmt.Sprintf("/api/v3/accounts/%d/homescreen", c.AccountID))

	if err != nil {
		return nil, err
	}

	if resp.IsError() {
		if isAuthStatus(resp.StatusCode()) {
			return nil, fmt.Errorf("%w: homescreen: %s", ErrAuth, resp.String())
		}
		return nil, fmt.Errorf("failed to get homescreen: %s", resp.String())
	}

	return &respData, nil
}
