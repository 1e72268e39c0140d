package tts

// ModelDescriptor describes one synthesis backend model: which voices it
// ships, which languages it covers and which speed factors it accepts.
// Resolving capabilities from a static descriptor replaces probing the
// backend for accepted parameters at call time.
type ModelDescriptor struct {
	ID           string    `json:"id"`
	Label        string    `json:"label"`
	Languages    []string  `json:"languages"`
	VoicePresets []string  `json:"voice_presets"`
	DefaultVoice string    `json:"default_voice"`
	SpeedPresets []float64 `json:"speed_presets"`
}

var speedPresets = []float64{0.8, 1.0, 1.2, 1.4}

var models = []ModelDescriptor{
	{
		ID:           "mlx-community/Kokoro-82M-bf16",
		Label:        "Kokoro",
		Languages:    []string{"EN", "JA", "ZH", "FR", "ES", "IT", "PT", "HI"},
		VoicePresets: []string{"af_heart", "af_bella", "am_adam", "bf_alice", "jm_kumo", "zf_xiaobei"},
		DefaultVoice: "af_heart",
		SpeedPresets: speedPresets,
	},
	{
		ID:           "mlx-community/Qwen3-TTS-12Hz-1.7B-VoiceDesign-bf16",
		Label:        "Qwen3-TTS",
		Languages:    []string{"ZH", "EN", "JA", "KO"},
		VoicePresets: []string{"Chelsie", "Ethan", "Serena"},
		DefaultVoice: "Chelsie",
		SpeedPresets: speedPresets,
	},
	{
		ID:           "mlx-community/csm-1b",
		Label:        "CSM",
		Languages:    []string{"EN"},
		VoicePresets: []string{"conversational_a", "conversational_b"},
		DefaultVoice: "conversational_a",
		SpeedPresets: speedPresets,
	},
	{
		ID:           "mlx-community/Dia-1.6B-fp16",
		Label:        "Dia",
		Languages:    []string{"EN"},
		VoicePresets: []string{"default"},
		DefaultVoice: "default",
		SpeedPresets: speedPresets,
	},
	{
		ID:           "mlx-community/OuteTTS-1.0-0.6B-fp16",
		Label:        "OuteTTS",
		Languages:    []string{"EN"},
		VoicePresets: []string{"default"},
		DefaultVoice: "default",
		SpeedPresets: speedPresets,
	},
	{
		ID:           "mlx-community/Spark-TTS-0.5B-bf16",
		Label:        "Spark",
		Languages:    []string{"EN", "ZH"},
		VoicePresets: []string{"default"},
		DefaultVoice: "default",
		SpeedPresets: speedPresets,
	},
	{
		ID:           "mlx-community/chatterbox-fp16",
		Label:        "Chatterbox",
		Languages:    []string{"EN", "ES", "FR", "DE", "IT", "PT", "PL", "TR", "RU", "NL", "CS", "AR", "ZH", "JA", "HU", "KO"},
		VoicePresets: []string{"default"},
		DefaultVoice: "default",
		SpeedPresets: speedPresets,
	},
	{
		ID:           "mlx-community/Soprano-1.1-80M-bf16",
		Label:        "Soprano",
		Languages:    []string{"EN"},
		VoicePresets: []string{"default"},
		DefaultVoice: "default",
		SpeedPresets: speedPresets,
	},
}

// ListModels returns the full synthesis model catalog.
func ListModels() []ModelDescriptor {
	out := make([]ModelDescriptor, len(models))
	copy(out, models)
	return out
}

// GetModel looks a descriptor up by ID.
func GetModel(modelID string) (ModelDescriptor, bool) {
	for _, model := range models {
		if model.ID == modelID {
			return model, true
		}
	}
	return ModelDescriptor{}, false
}
