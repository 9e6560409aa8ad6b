package objectkey

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSingle(t *testing.T) {
	assert.Equal(t, "uploads/Report.PDF", Single("/tmp/x/Report.PDF", ""))
	assert.Equal(t, "Custom/Name.bin", Single("/tmp/x/Report.PDF", "Custom/Name.bin"))
}

func TestDeriverKey(t *testing.T) {
	tests := []struct {
		name    string
		deriver Deriver
		path    string
		want    string
	}{
		{
			name:    "no prefix",
			deriver: Deriver{Root: "photos", Lowercase: true},
			path:    filepath.Join("photos", "a.jpg"),
			want:    "uploads/photos/a.jpg",
		},
		{
			name:    "no prefix nested",
			deriver: Deriver{Root: "photos/", Lowercase: true},
			path:    filepath.Join("photos", "sub", "b.jpg"),
			want:    "uploads/photos/sub/b.jpg",
		},
		{
			name:    "no prefix absolute root",
			deriver: Deriver{Root: "/data/Photos", Lowercase: true},
			path:    "/data/Photos/IMG_01.JPG",
			want:    "uploads/data/photos/img_01.jpg",
		},
		{
			name:    "prefix with separators",
			deriver: Deriver{Root: "Photos", Prefix: "/Backups/", Lowercase: true},
			path:    filepath.Join("Photos", "sub", "B.jpg"),
			want:    "backups/photos/sub/b.jpg",
		},
		{
			name:    "prefix with trailing root separator",
			deriver: Deriver{Root: "/home/me/Photos/", Prefix: "backups", Lowercase: true},
			path:    "/home/me/Photos/a.jpg",
			want:    "backups/photos/a.jpg",
		},
		{
			name:    "prefix of only a separator",
			deriver: Deriver{Root: "photos", Prefix: "/", Lowercase: true},
			path:    filepath.Join("photos", "a.jpg"),
			want:    "photos/a.jpg",
		},
		{
			name:    "doubled separators in prefix",
			deriver: Deriver{Root: "photos", Prefix: "a//b", Lowercase: true},
			path:    filepath.Join("photos", "a.jpg"),
			want:    "a/b/photos/a.jpg",
		},
		{
			name:    "case preserved when lowercasing is off",
			deriver: Deriver{Root: "Photos", Prefix: "Backups"},
			path:    filepath.Join("Photos", "A.jpg"),
			want:    "Backups/Photos/A.jpg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.deriver.Key(tt.path))
		})
	}
}

func TestDeriverDotRoot(t *testing.T) {
	abs, err := filepath.Abs(".")
	if err != nil {
		t.Fatal(err)
	}
	d := Deriver{Root: ".", Prefix: "bk"}
	assert.Equal(t, "bk/"+filepath.Base(abs)+"/a.txt", d.Key("a.txt"))
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"/",
		"///a///B//c/",
		"uploads//Photos/IMG.JPG",
		"plain/key",
		"Ünïcode//Ärger",
	}

	for _, in := range inputs {
		for _, lower := range []bool{true, false} {
			once := Normalize(in, lower)
			assert.Equal(t, once, Normalize(once, lower), "input %q", in)
			assert.NotContains(t, once, "//")
		}
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a/b/c/", Normalize("//a///b//c//", false))
	assert.Equal(t, "uploads/photos/a.jpg", Normalize("uploads//Photos/A.JPG", true))
}

func TestDownloadURL(t *testing.T) {
	tests := []struct {
		domain string
		key    string
		want   string
	}{
		{domain: "", key: "a.txt", want: ""},
		{domain: "cdn.example.com", key: "uploads/a.txt", want: "https://cdn.example.com/uploads/a.txt"},
		{domain: "http://cdn.example.com/", key: "uploads/a.txt", want: "http://cdn.example.com/uploads/a.txt"},
		{domain: "https://cdn.example.com", key: "my files/a b.txt", want: "https://cdn.example.com/my%20files/a%20b.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.domain+"/"+tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, DownloadURL(tt.domain, tt.key))
		})
	}
}
