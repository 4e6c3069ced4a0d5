package gc

import (
	"errors"
	"testing"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		name       string
		location   string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{name: "bucket and key", location: "bucket1/key1", wantBucket: "bucket1", wantKey: "key1"},
		{name: "key keeps later separators", location: "bucket1/vol-1/snap-A", wantBucket: "bucket1", wantKey: "vol-1/snap-A"},
		{name: "surrounding whitespace", location: "  bucket1/key1\n", wantBucket: "bucket1", wantKey: "key1"},
		{name: "empty", location: "", wantErr: true},
		{name: "whitespace only", location: "   ", wantErr: true},
		{name: "no separator", location: "bucket1", wantErr: true},
		{name: "empty bucket", location: "/key1", wantErr: true},
		{name: "empty key", location: "bucket1/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := ParseLocation(tt.location)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidLocation) {
					t.Fatalf("ParseLocation(%q) error = %v, want ErrInvalidLocation", tt.location, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLocation(%q) error = %v", tt.location, err)
			}
			if bucket != tt.wantBucket || key != tt.wantKey {
				t.Errorf("ParseLocation(%q) = (%q, %q), want (%q, %q)", tt.location, bucket, key, tt.wantBucket, tt.wantKey)
			}
		})
	}
}
