package configutil

import "testing"

func TestDecodeSettingsNormalizesKeys(t *testing.T) {
	var out struct {
		APIKey     string `mapstructure:"api_key"`
		SampleRate int    `mapstructure:"sample_rate"`
	}
	err := DecodeSettings(map[string]any{
		"API_KEY":     "secret",
		"sample_rate": "24000",
	}, &out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.APIKey != "secret" {
		t.Fatalf("APIKey = %q", out.APIKey)
	}
	if out.SampleRate != 24000 {
		t.Fatalf("weakly typed int not decoded: %d", out.SampleRate)
	}
}

func TestDecodeSettingsEmptyInputIsNoop(t *testing.T) {
	var out struct {
		Value string `mapstructure:"value"`
	}
	if err := DecodeSettings(nil, &out); err != nil {
		t.Fatalf("nil input: %v", err)
	}
	if out.Value != "" {
		t.Fatalf("out mutated: %q", out.Value)
	}
}

func TestRequireString(t *testing.T) {
	if err := RequireString("  ", "tools.name"); err == nil {
		t.Fatalf("blank value must fail")
	}
	if err := RequireString("ok", "tools.name"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestFallbackHelpers(t *testing.T) {
	yes := true
	if !BoolValue(&yes, false) {
		t.Fatalf("explicit true lost")
	}
	if BoolValue(nil, false) {
		t.Fatalf("fallback false lost")
	}
	if IntValue(0, 7) != 7 || IntValue(3, 7) != 3 {
		t.Fatalf("int fallback wrong")
	}
}
