package notify

import "fmt"

const prettyTime = "Jan 02, 2006 03:04 PM"

// RenderEmail builds the subject and bodies for a lifecycle notification.
func RenderEmail(kind Kind, p Payload) (EmailMessage, error) {
	switch kind {
	case KindBooked:
		return renderBooked(p), nil
	case KindRescheduled:
		return renderRescheduled(p), nil
	case KindCancelled:
		return renderCancelled(p), nil
	default:
		return EmailMessage{}, fmt.Errorf("notify: unknown notification kind %q", kind)
	}
}

func renderBooked(p Payload) EmailMessage {
	pretty := p.StartAt.Format(prettyTime)
	text := fmt.Sprintf(`Appointment Confirmed
Pet: %s
Vet: %s
Date & Time: %s
%s
Thanks,
VetCare+ Team`, p.PetName, p.VetName, pretty, manageLine(p.ManageURL))

	body := fmt.Sprintf(`<h1 style="margin:0 0 12px 0;font-size:20px;">Appointment Confirmed</h1>
<p style="margin:0 0 8px 0;">Hi,</p>
<p style="margin:0 0 8px 0;">Your appointment has been booked.</p>
<ul style="margin:0 0 12px 20px;padding:0;">
  <li><strong>Pet:</strong> %s</li>
  <li><strong>Vet:</strong> %s</li>
  <li><strong>Date &amp; Time:</strong> %s</li>
</ul>%s
<p style="margin:16px 0 0 0;">Thanks,<br/>VetCare+ Team</p>`,
		p.PetName, p.VetName, pretty, manageButton(p.ManageURL))

	return EmailMessage{
		Subject: fmt.Sprintf("VetCare+ appointment for %s with %s", p.PetName, p.VetName),
		Body:    text,
		HTML:    layout("Appointment Booked", body),
	}
}

func renderRescheduled(p Payload) EmailMessage {
	pretty := p.StartAt.Format(prettyTime)
	old := ""
	if p.OldStartAt != nil {
		old = p.OldStartAt.Format(prettyTime)
	}
	text := fmt.Sprintf(`Appointment Rescheduled
Pet: %s
Vet: %s
Previous: %s
New Date & Time: %s
%s
Thanks,
VetCare+ Team`, p.PetName, p.VetName, old, pretty, manageLine(p.ManageURL))

	body := fmt.Sprintf(`<h1 style="margin:0 0 12px 0;font-size:20px;">Appointment Rescheduled</h1>
<p style="margin:0 0 8px 0;">Your appointment has been moved.</p>
<ul style="margin:0 0 12px 20px;padding:0;">
  <li><strong>Pet:</strong> %s</li>
  <li><strong>Vet:</strong> %s</li>
  <li><strong>Previous:</strong> %s</li>
  <li><strong>New Date &amp; Time:</strong> %s</li>
</ul>%s
<p style="margin:16px 0 0 0;">Thanks,<br/>VetCare+ Team</p>`,
		p.PetName, p.VetName, old, pretty, manageButton(p.ManageURL))

	return EmailMessage{
		Subject: fmt.Sprintf("VetCare+ appointment for %s rescheduled to %s", p.PetName, pretty),
		Body:    text,
		HTML:    layout("Appointment Rescheduled", body),
	}
}

func renderCancelled(p Payload) EmailMessage {
	pretty := p.StartAt.Format(prettyTime)
	text := fmt.Sprintf(`Appointment Cancelled
Pet: %s
Vet: %s
Was scheduled for: %s

Thanks,
VetCare+ Team`, p.PetName, p.VetName, pretty)

	body := fmt.Sprintf(`<h1 style="margin:0 0 12px 0;font-size:20px;">Appointment Cancelled</h1>
<p style="margin:0 0 8px 0;">Your appointment has been cancelled.</p>
<ul style="margin:0 0 12px 20px;padding:0;">
  <li><strong>Pet:</strong> %s</li>
  <li><strong>Vet:</strong> %s</li>
  <li><strong>Was scheduled for:</strong> %s</li>
</ul>
<p style="margin:16px 0 0 0;">Thanks,<br/>VetCare+ Team</p>`,
		p.PetName, p.VetName, pretty)

	return EmailMessage{
		Subject: fmt.Sprintf("VetCare+ appointment for %s cancelled", p.PetName),
		Body:    text,
		HTML:    layout("Appointment Cancelled", body),
	}
}

func layout(title, bodyHTML string) string {
	return fmt.Sprintf(`<!doctype html>
<html>
<head><meta charset="utf-8"/><title>%s</title></head>
<body style="margin:0;padding:24px;background:#f4f6f8;font-family:Arial,Helvetica,sans-serif;color:#1f2933;">
  <div style="max-width:560px;margin:0 auto;background:#ffffff;border-radius:8px;padding:24px;">
%s
  </div>
</body>
</html>`, title, bodyHTML)
}

func manageLine(url string) string {
	if url == "" {
		return ""
	}
	return fmt.Sprintf("Manage: %s\n", url)
}

func manageButton(url string) string {
	if url == "" {
		return ""
	}
	return fmt.Sprintf(`
<p style="margin:16px 0;"><a href="%s" style="display:inline-block;padding:10px 14px;text-decoration:none;border-radius:6px;border:1px solid #0b5ed7;">Manage Appointment</a></p>`, url)
}
