package inverter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `<html>
<head>
<script type="text/javascript">
var webdata_sn = "4100666777";
var webdata_msvn = "V1.0.12";
var webdata_ssvn = "V1.0.04";
var webdata_pv_type = "MI-600";
var webdata_rate_p = "600";
var webdata_now_p = "350.5";
var webdata_today_e = "4.2";
var webdata_total_e = "1203.7";
var webdata_grid_v = "233.4";
var webdata_grid_c = "1.51";
var webdata_grid_f = "49.98";
var webdata_pv1_v = "32.1";
var webdata_pv1_c = "5.44";
var webdata_pv1_p = "174.6";
var webdata_pv2_v = "31.8";
var webdata_pv2_c = "5.52";
var webdata_pv2_p = "175.9";
var webdata_temp = "41.2";
var webdata_eff = "96.5";
var webdata_pf = "0.99";
var webdata_bus_v = "365.0";
var webdata_utime = "30";
var webdata_alarm_cnt = "0";
var cover_mid = "160000668899";
var cover_ver = "LSW3_14_FFFF_1.0.34";
var cover_wmode = "STA";
var cover_ap_ssid = "AP_4100666777";
var cover_ap_ip = "10.10.100.254";
var cover_ap_mac = "8C:D8:B3:70:12:34";
var cover_sta_ssid = "HomeNet";
var cover_sta_rssi = "78%";
var cover_sta_ip = "192.168.1.45";
var cover_sta_mac = "98:D8:63:70:56:78";
var status_a = "1";
var status_b = "1";
var status_c = "0";
</script>
</head>
<body>
<table><tr><td>Device serial number:</td><td><span id="sn"></span></td></tr></table>
</body>
</html>`

func TestParse(t *testing.T) {
	stats, err := Parse([]byte(samplePage))
	require.NoError(t, err)

	assert.Equal(t, "350.5", stats["webdata_now_p"])
	assert.Equal(t, "4.2", stats["webdata_today_e"])
	assert.Equal(t, "1203.7", stats["webdata_total_e"])
	assert.Equal(t, "78%", stats["cover_sta_rssi"])
	assert.Equal(t, "1", stats["status_a"])

	// Variables the collector does not use still come through.
	assert.Equal(t, "4100666777", stats["webdata_sn"])
	assert.Equal(t, "STA", stats["cover_wmode"])
}

func TestParseTolerance(t *testing.T) {
	page := `var webdata_now_p="350.5";
var	webdata_rate_p	=	"600";
var broken_line = oops;
var cover_sta_rssi = "78%";
var status_a = "1";`

	stats, err := Parse([]byte(page))
	require.NoError(t, err)

	assert.Equal(t, "350.5", stats["webdata_now_p"], "dense spacing")
	assert.Equal(t, "600", stats["webdata_rate_p"], "tab separators")
	assert.Equal(t, "78%", stats["cover_sta_rssi"])
	assert.NotContains(t, stats, "broken_line")
}

func TestParseUnexpectedFormat(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty payload", []byte{}},
		{"plain html", []byte("<html><body>Login required</body></html>")},
		{"binary garbage", []byte{0x1f, 0x8b, 0x08, 0x00, 0xff}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats, err := Parse(tt.payload)
			assert.Nil(t, stats)

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, ParseUnexpectedFormat, perr.Kind)
			assert.False(t, perr.Transient())
		})
	}
}

func TestParseMissingSection(t *testing.T) {
	tests := []struct {
		name        string
		page        string
		wantSection string
	}{
		{
			name:        "no status section",
			page:        `var webdata_now_p = "350.5";` + "\n" + `var cover_sta_rssi = "78%";`,
			wantSection: "status",
		},
		{
			name:        "no webdata section",
			page:        `var cover_sta_rssi = "78%";` + "\n" + `var status_a = "1";`,
			wantSection: "webdata",
		},
		{
			name:        "no cover section",
			page:        `var webdata_now_p = "350.5";` + "\n" + `var status_a = "1";`,
			wantSection: "cover",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.page))

			var perr *ParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, ParseMissingSection, perr.Kind)
			assert.Equal(t, tt.wantSection, perr.Section)
		})
	}
}
