package overlay

import "testing"

func TestParseProbe(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    MediaInfo
		wantErr bool
	}{
		{
			name: "video and audio",
			input: `{"streams":[
				{"codec_type":"video","codec_name":"h264","width":1920,"height":1080,"duration":"10.000000"},
				{"codec_type":"audio","codec_name":"aac","duration":"9.98"}],
				"format":{"duration":"10.02"}}`,
			want: MediaInfo{Duration: 10, Width: 1920, Height: 1080, VideoCodec: "h264", HasAudio: true, AudioCodec: "aac"},
		},
		{
			name:  "falls back to container duration",
			input: `{"streams":[{"codec_type":"video","codec_name":"vp9","width":640,"height":360}],"format":{"duration":"4.5"}}`,
			want:  MediaInfo{Duration: 4.5, Width: 640, Height: 360, VideoCodec: "vp9"},
		},
		{
			name:    "audio only",
			input:   `{"streams":[{"codec_type":"audio","codec_name":"mp3"}],"format":{"duration":"3"}}`,
			wantErr: true,
		},
		{
			name:    "no duration",
			input:   `{"streams":[{"codec_type":"video","width":640,"height":360}],"format":{}}`,
			wantErr: true,
		},
		{
			name:    "not json",
			input:   `Invalid data found when processing input`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProbe([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
