package ns3

import "testing"

func TestParseContextNodeID(t *testing.T) {
	tests := []struct {
		name    string
		context string
		want    uint32
		wantErr bool
	}{
		{
			name:    "mobility course change",
			context: "/NodeList/7/$ns3::MobilityModel/CourseChange",
			want:    7,
		},
		{
			name:    "enb rrc trace",
			context: "/NodeList/0/DeviceList/0/LteEnbRrc/HandoverStart",
			want:    0,
		},
		{
			name:    "bare node path",
			context: "/NodeList/12",
			want:    12,
		},
		{
			name:    "max uint32",
			context: "/NodeList/4294967295/foo",
			want:    4294967295,
		},
		{
			name:    "empty string",
			context: "",
			wantErr: true,
		},
		{
			name:    "missing leading slash",
			context: "NodeList/7/$ns3::MobilityModel/CourseChange",
			wantErr: true,
		},
		{
			name:    "empty node id",
			context: "/NodeList//DeviceList/0",
			wantErr: true,
		},
		{
			name:    "bare prefix",
			context: "/NodeList/",
			wantErr: true,
		},
		{
			name:    "non-numeric id",
			context: "/NodeList/abc/DeviceList",
			wantErr: true,
		},
		{
			name:    "trailing garbage in id",
			context: "/NodeList/7x/DeviceList",
			wantErr: true,
		},
		{
			name:    "negative id",
			context: "/NodeList/-1/DeviceList",
			wantErr: true,
		},
		{
			name:    "overflows uint32",
			context: "/NodeList/4294967296/foo",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseContextNodeID(tt.context)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseContextNodeID(%q) = %d, want error", tt.context, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseContextNodeID(%q) error: %v", tt.context, err)
			}
			if got != tt.want {
				t.Errorf("ParseContextNodeID(%q) = %d, want %d", tt.context, got, tt.want)
			}
		})
	}
}
