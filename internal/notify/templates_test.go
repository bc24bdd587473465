package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePayload() Payload {
	return Payload{
		PetName:   "Biscuit",
		VetName:   "Dr. Patel",
		StartAt:   time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
		ManageURL: "https://vetcare.example.com/appointments",
	}
}

func TestRenderEmail_Booked(t *testing.T) {
	msg, err := RenderEmail(KindBooked, samplePayload())
	require.NoError(t, err)

	assert.Equal(t, "VetCare+ appointment for Biscuit with Dr. Patel", msg.Subject)
	assert.Contains(t, msg.Body, "Biscuit")
	assert.Contains(t, msg.Body, "Dr. Patel")
	assert.Contains(t, msg.Body, "Jan 10, 2025 09:00 AM")
	assert.Contains(t, msg.Body, "https://vetcare.example.com/appointments")
	assert.Contains(t, msg.HTML, "Appointment Confirmed")
	assert.Contains(t, msg.HTML, "Manage Appointment")
}

func TestRenderEmail_Rescheduled(t *testing.T) {
	p := samplePayload()
	old := time.Date(2025, 1, 8, 14, 30, 0, 0, time.UTC)
	p.OldStartAt = &old

	msg, err := RenderEmail(KindRescheduled, p)
	require.NoError(t, err)

	assert.Contains(t, msg.Subject, "rescheduled")
	assert.Contains(t, msg.Body, "Jan 08, 2025 02:30 PM", "previous time must appear")
	assert.Contains(t, msg.Body, "Jan 10, 2025 09:00 AM", "new time must appear")
}

func TestRenderEmail_Cancelled(t *testing.T) {
	msg, err := RenderEmail(KindCancelled, samplePayload())
	require.NoError(t, err)

	assert.Equal(t, "VetCare+ appointment for Biscuit cancelled", msg.Subject)
	assert.Contains(t, msg.HTML, "Appointment Cancelled")
	assert.NotContains(t, msg.HTML, "Manage Appointment", "cancelled mails carry no manage link")
}

func TestRenderEmail_NoManageURL(t *testing.T) {
	p := samplePayload()
	p.ManageURL = ""

	msg, err := RenderEmail(KindBooked, p)
	require.NoError(t, err)
	assert.NotContains(t, msg.Body, "Manage:")
	assert.NotContains(t, msg.HTML, "Manage Appointment")
}

func TestRenderEmail_UnknownKind(t *testing.T) {
	_, err := RenderEmail(Kind("carrier-pigeon"), samplePayload())
	assert.Error(t, err)
}
