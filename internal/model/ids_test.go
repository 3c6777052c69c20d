package model

import "testing"

func TestDeriveExternalID_LinkedIn(t *testing.T) {
	tests := []struct {
		name      string
		permalink string
		want      string
	}{
		{
			name:      "posts path with trailing hash",
			permalink: "https://www.linkedin.com/posts/jane-doe-7380301291354263553-tCfn",
			want:      "7380301291354263553",
		},
		{
			name:      "posts path without hash",
			permalink: "https://www.linkedin.com/posts/jane-doe-7380301291354263553",
			want:      "7380301291354263553",
		},
		{
			name:      "urn activity format",
			permalink: "https://www.linkedin.com/feed/update/urn:li:activity:7123456789012345678",
			want:      "7123456789012345678",
		},
		{
			name:      "activity dash format",
			permalink: "linkedin.com/posts/foo-activity-7123456789012345678",
			want:      "7123456789012345678",
		},
		{
			name:      "no id present",
			permalink: "https://www.linkedin.com/company/acme",
			want:      "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveExternalID(PlatformLinkedIn, tt.permalink); got != tt.want {
				t.Errorf("DeriveExternalID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeriveExternalID_Twitter(t *testing.T) {
	got := DeriveExternalID(PlatformTwitter, "https://twitter.com/someone/status/1690001112223334445")
	if got != "1690001112223334445" {
		t.Errorf("DeriveExternalID() = %q", got)
	}
	if got := DeriveExternalID(PlatformTwitter, "https://twitter.com/someone"); got != "" {
		t.Errorf("expected empty id, got %q", got)
	}
}

func TestDeriveExternalID_Bluesky(t *testing.T) {
	tests := []struct {
		permalink string
		want      string
	}{
		{"at://did:plc:abc123/app.bsky.feed.post/3k44dzzql2b2t", "3k44dzzql2b2t"},
		{"https://bsky.app/profile/jane.bsky.social/post/3k44dzzql2b2t", "3k44dzzql2b2t"},
		{"https://bsky.app/profile/jane.bsky.social", ""},
	}
	for _, tt := range tests {
		if got := DeriveExternalID(PlatformBluesky, tt.permalink); got != tt.want {
			t.Errorf("DeriveExternalID(%q) = %q, want %q", tt.permalink, got, tt.want)
		}
	}
}

func TestDeriveExternalID_Empty(t *testing.T) {
	if got := DeriveExternalID(PlatformLinkedIn, ""); got != "" {
		t.Errorf("expected empty id for empty permalink, got %q", got)
	}
}
