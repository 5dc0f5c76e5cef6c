package encryption

import (
	"testing"

	"qv-go/internal/config"
)

func TestNewEncryptorFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		typ      string
		wantType string
		wantErr  bool
	}{
		{"default is age", "", "*encryption.AgeEncryptor", false},
		{"age", "age", "*encryption.AgeEncryptor", false},
		{"test", "test", "*encryption.TestEncryptor", false},
		{"unknown", "rot13", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: tt.typ})
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEncryptorFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			switch got.(type) {
			case *AgeEncryptor:
				if tt.wantType != "*encryption.AgeEncryptor" {
					t.Errorf("got %T, want %s", got, tt.wantType)
				}
			case *TestEncryptor:
				if tt.wantType != "*encryption.TestEncryptor" {
					t.Errorf("got %T, want %s", got, tt.wantType)
				}
			default:
				t.Errorf("unexpected type %T", got)
			}
		})
	}
}
