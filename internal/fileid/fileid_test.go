package fileid

import "testing"

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a    FileIdentity
		b    FileIdentity
		want bool
	}{
		{"identical", FileIdentity{Dev: 1, Ino: 2}, FileIdentity{Dev: 1, Ino: 2}, true},
		{"different inode", FileIdentity{Dev: 1, Ino: 2}, FileIdentity{Dev: 1, Ino: 3}, false},
		{"different device", FileIdentity{Dev: 1, Ino: 2}, FileIdentity{Dev: 4, Ino: 2}, false},
		{"both zero", FileIdentity{}, FileIdentity{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestZero(t *testing.T) {
	if !(FileIdentity{}).Zero() {
		t.Error("zero-value FileIdentity should report Zero() == true")
	}
	if (FileIdentity{Dev: 1}).Zero() {
		t.Error("non-zero Dev should report Zero() == false")
	}
}

func TestString(t *testing.T) {
	got := FileIdentity{Dev: 8, Ino: 42}.String()
	want := "8:42"
	if got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
