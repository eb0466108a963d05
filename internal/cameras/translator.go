package cameras

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/technosupport/secops/internal/data"
)

const (
	UnknownModel       = "Unknown"
	ManualDevicePrefix = "MANUAL_"
	ManualChannelNo    = 1
)

// Conversions between data.CloudCamera and Camera live only in this file.

// ToPublic maps a stored row to the public shape. The cloud table carries no network
// address or credentials, so those fields are always empty.
func ToPublic(rec *data.CloudCamera) Camera {
	c := Camera{
		ID:        rec.ID,
		Name:      rec.CameraName,
		Model:     deref(rec.CameraModel),
		Status:    Status(rec.Status),
		Location:  deref(rec.Location),
		RTSPURL:   deref(rec.RTSPURL),
		ProjectID: rec.ProjectID,
		TenantID:  rec.TenantID,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	if c.Model == "" {
		c.Model = UnknownModel
	}
	return c
}

// ToStoredUpdate forwards only the fields present in p that the cloud table stores.
func ToStoredUpdate(p Patch) data.CloudCameraPatch {
	var out data.CloudCameraPatch
	if p.Name != nil {
		out.CameraName = p.Name
	}
	if p.Model != nil {
		out.CameraModel = p.Model
	}
	if p.Location != nil {
		out.Location = p.Location
	}
	if p.Status != nil {
		s := string(*p.Status)
		out.Status = &s
	}
	if p.RTSPURL != nil {
		out.RTSPURL = p.RTSPURL
	}
	return out
}

// ToStoredInsert builds the row for a manually added camera. The device id and serial are
// synthesized because the cloud table requires them: MANUAL_<unix millis>_<random suffix>,
// so two adds in the same millisecond do not collide on the device key.
func ToStoredInsert(projectID, tenantID uuid.UUID, in Input, now time.Time) *data.CloudCamera {
	deviceID := fmt.Sprintf("%s%d_%s", ManualDevicePrefix, now.UnixMilli(), uuid.NewString()[:8])
	return &data.CloudCamera{
		TenantID:     tenantID,
		ProjectID:    projectID,
		DeviceID:     deviceID,
		DeviceSerial: deviceID,
		ChannelNo:    ManualChannelNo,
		CameraName:   in.Name,
		CameraModel:  nonEmpty(in.Model),
		Status:       string(in.Status),
		Location:     nonEmpty(in.Location),
		RTSPURL:      nonEmpty(in.RTSPURL),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// ApplyPatch merges p into a cached camera using the same field set as ToStoredUpdate.
func ApplyPatch(c Camera, p Patch, now time.Time) Camera {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Model != nil {
		c.Model = *p.Model
		if c.Model == "" {
			c.Model = UnknownModel
		}
	}
	if p.Location != nil {
		c.Location = *p.Location
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.RTSPURL != nil {
		c.RTSPURL = *p.RTSPURL
	}
	c.UpdatedAt = now
	return c
}

// RemoteDevice is one channel as reported by the device API.
type RemoteDevice struct {
	DeviceID     string `json:"device_id"`
	DeviceSerial string `json:"device_serial"`
	ChannelNo    int    `json:"channel_no"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	Online       bool   `json:"online"`
	RTSPURL      string `json:"rtsp_url"`
}

// FromRemoteDevice builds the row a sync upserts for d.
func FromRemoteDevice(projectID, tenantID uuid.UUID, d RemoteDevice, now time.Time) *data.CloudCamera {
	status := StatusOffline
	if d.Online {
		status = StatusOnline
	}
	channel := d.ChannelNo
	if channel <= 0 {
		channel = 1
	}
	serial := d.DeviceSerial
	if serial == "" {
		serial = d.DeviceID
	}
	name := d.Name
	if name == "" {
		name = fmt.Sprintf("%s-%d", serial, channel)
	}
	synced := now
	return &data.CloudCamera{
		TenantID:     tenantID,
		ProjectID:    projectID,
		DeviceID:     d.DeviceID,
		DeviceSerial: serial,
		ChannelNo:    channel,
		CameraName:   name,
		CameraModel:  nonEmpty(d.Model),
		Status:       string(status),
		RTSPURL:      nonEmpty(d.RTSPURL),
		LastSyncAt:   &synced,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
