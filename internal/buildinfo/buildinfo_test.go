package buildinfo

import "testing"

func TestRelease(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	tests := []struct {
		version, commit, want string
	}{
		{"v1.2.0", "abcdef0123", "komida-linebot@v1.2.0"},
		{"", "abcdef0123", "komida-linebot@abcdef0"},
		{"", "abc", "komida-linebot@abc"},
		{"", "", "komida-linebot@dev"},
	}
	for _, tt := range tests {
		Version, Commit = tt.version, tt.commit
		if got := Release(); got != tt.want {
			t.Errorf("Release() with version=%q commit=%q = %q, want %q", tt.version, tt.commit, got, tt.want)
		}
	}
}
