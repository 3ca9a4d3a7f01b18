package email

import (
	"mime"
	"strings"
	"testing"
)

func TestRegisterTypes(t *testing.T) {
	// Twice, to make sure the second call doesn't re-register or panic.
	registerTypes()
	registerTypes()

	// The system table may already map an extension to something else, so
	// only check that every extension resolves.
	for ext := range extraTypes {
		if mime.TypeByExtension(ext) == "" {
			t.Errorf("no type registered for %v", ext)
		}
	}
}

func TestPartHeader(t *testing.T) {
	h := newBodyPart("<p>x</p>").header()
	if ct := h.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") || !strings.Contains(ct, "utf-8") {
		t.Errorf("unexpected body Content-Type %q", ct)
	}
	if h.Get("Content-Id") != "" {
		t.Error("a body without a Content-ID shouldn't get the header")
	}

	h = Part{
		Kind:        AttachmentPart,
		ContentType: "image/png",
		ContentID:   "logo",
		Filename:    "logo.png",
	}.header()
	if h.Get("Content-Type") != "image/png" {
		t.Errorf("unexpected attachment Content-Type %q", h.Get("Content-Type"))
	}
	if h.Get("Content-Id") != "<logo>" {
		t.Errorf("unexpected Content-ID %q", h.Get("Content-Id"))
	}
	if h.Get("Content-Transfer-Encoding") != "base64" {
		t.Errorf("unexpected encoding %q", h.Get("Content-Transfer-Encoding"))
	}
	disp, params, err := h.ContentDisposition()
	if err != nil || disp != "attachment" || params["filename"] != "logo.png" {
		t.Errorf("unexpected Content-Disposition %q %v %v", disp, params, err)
	}
}
