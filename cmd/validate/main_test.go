package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const validWorld = `
globalImageStyle: "pencil"
audioPromptSuffix: "ambient"
genres:
  fantasy:
    label: "ファンタジー"
    stats:
      hp: { label: "体力", icon: "❤️", max: 100 }
    keywords: ["竜"]
    imageStyleSuffix: "forest"
    sampleSettings: ["霧の森"]
  scifi:
    label: "SF"
    stats:
      hp: { label: "生命維持", icon: "🫀", max: 100 }
    keywords: ["宇宙"]
    imageStyleSuffix: "ship"
    sampleSettings: ["漂流船"]
  western:
    label: "西部劇"
    stats:
      hp: { label: "体力", icon: "🤠", max: 100 }
      bullets: { label: "弾薬", icon: "🔫", max: 6 }
    keywords: ["荒野"]
    imageStyleSuffix: "desert"
    sampleSettings: ["砂嵐の町"]
`

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{name: "valid", data: validWorld},
		{
			name:    "bad genre key",
			data:    strings.Replace(validWorld, "  western:", "  Wild-West:", 1),
			wantErr: "genre key 'Wild-West' must be lowercase snake_case",
		},
		{
			name:    "reserved stat",
			data:    strings.Replace(validWorld, "bullets:", "inventory:", 1),
			wantErr: `"inventory" is reserved`,
		},
		{
			name:    "duplicate sample",
			data:    strings.Replace(validWorld, `sampleSettings: ["漂流船"]`, `sampleSettings: ["漂流船", "漂流船"]`, 1),
			wantErr: "duplicate sample setting",
		},
		{
			name:    "unknown field",
			data:    validWorld + "extra: true\n",
			wantErr: "failed to parse world config",
		},
		{
			name:    "missing hp",
			data:    strings.Replace(validWorld, `hp: { label: "体力", icon: "🤠", max: 100 }`, "", 1),
			wantErr: "stats.hp is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &WorldValidator{}
			err := v.validate([]byte(tt.data), "test.yaml")
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(v.warnings) != 0 {
					t.Errorf("unexpected warnings: %v", v.warnings)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateFile_Extension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world.txt")
	if err := os.WriteFile(path, []byte(validWorld), 0o600); err != nil {
		t.Fatal(err)
	}
	v := &WorldValidator{}
	if err := v.validateFile(path); err == nil {
		t.Error("expected extension error")
	}
}

func TestValidateFile_Bundled(t *testing.T) {
	v := &WorldValidator{}
	if err := v.validateFile(filepath.Join("..", "..", "pkg", "world", "world_config.yaml")); err != nil {
		t.Errorf("bundled world config should validate: %v", err)
	}
}
