package report

import (
	"bytes"
	"encoding/base64"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/zeeman-rings-mcp/internal/calibration"
	"github.com/ironsheep/zeeman-rings-mcp/internal/zeeman"
)

func measurement(b, split float64) zeeman.Measurement {
	return zeeman.ProcessMeasurement(zeeman.RawMeasurementInput{
		BField:     b,
		Wavelength: 643.8e-9,
		RCenter:    zeeman.Float(5),
		RInner:     zeeman.Float(5 - split),
		ROuter:     zeeman.Float(5 + split),
	})
}

func readTSV(t *testing.T, s string) [][]string {
	t.Helper()
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	out := make([][]string, len(lines))
	for i, l := range lines {
		out[i] = strings.Split(l, "\t")
	}
	return out
}

func TestWriteCSV(t *testing.T) {
	t.Parallel()

	m := measurement(0.5, 0.1)
	m.Current = zeeman.Float(1.25)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []zeeman.Measurement{m}, nil))

	rows := readTSV(t, buf.String())
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])

	r := rows[1]
	require.Len(t, r, len(Header))
	assert.Equal(t, "1.25", r[0])
	assert.Equal(t, "5000.00", r[1])
	assert.Equal(t, "4.900", r[2])
	assert.Equal(t, "5.000", r[3])
	assert.Equal(t, "5.100", r[4])
	assert.Len(t, strings.SplitN(r[6], ".", 2)[1], 4, "angles have 4 decimals")
	assert.True(t, strings.HasPrefix(r[11], "-"), "inner wavelength shift is negative")
	assert.Len(t, strings.SplitN(r[13], ".", 2)[1], 6, "energies have 6 decimals")
}

func TestWriteCSV_UndefinedCellsEmpty(t *testing.T) {
	t.Parallel()

	m := zeeman.ProcessMeasurement(zeeman.RawMeasurementInput{
		BField:     0.2,
		Wavelength: 643.8e-9,
		RCenter:    zeeman.Float(5),
	})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []zeeman.Measurement{m}, nil))
	r := readTSV(t, buf.String())[1]
	require.Len(t, r, len(Header))

	assert.Equal(t, "", r[0], "no current and no calibration")
	assert.Equal(t, "2000.00", r[1])
	assert.Equal(t, "", r[2])
	assert.Equal(t, "5.000", r[3])
	for i := 5; i < len(r); i++ {
		assert.Equal(t, "", r[i], "column %s", Header[i])
	}
}

func TestWriteCSV_CurrentFromCalibration(t *testing.T) {
	t.Parallel()

	fc := &calibration.FieldCalibration{Slope: 10000, Intercept: 0}
	m := measurement(0.3, 0.05)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []zeeman.Measurement{m}, fc))
	r := readTSV(t, buf.String())[1]
	assert.Equal(t, "0.30", r[0])
}

func TestWriteCSV_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, nil))
	assert.Equal(t, strings.Join(Header, "\t")+"\n", buf.String())
}

func TestPlotEnergyShifts(t *testing.T) {
	t.Parallel()

	ms := []zeeman.Measurement{
		measurement(0.2, 0.02),
		measurement(0.4, 0.04),
		measurement(0.6, 0.06),
		zeeman.ProcessMeasurement(zeeman.RawMeasurementInput{BField: 0.9, Wavelength: 643.8e-9}),
	}
	opts := PlotOptions{Width: 300, Height: 200}

	p, err := PlotEnergyShifts(ms, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Points)
	require.NotNil(t, p.InnerFit)
	require.NotNil(t, p.OuterFit)
	assert.Greater(t, p.InnerFit.Slope, 0.0)
	assert.Greater(t, p.OuterFit.Slope, 0.0)

	raw, err := base64.StdEncoding.DecodeString(p.Base64())
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Greater(t, cfg.Width, 0)
	assert.Greater(t, cfg.Height, 0)
}

func TestPlotEnergyShifts_SinglePointNoFit(t *testing.T) {
	t.Parallel()

	p, err := PlotEnergyShifts([]zeeman.Measurement{measurement(0.3, 0.03)}, DefaultPlotOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, p.Points)
	assert.Nil(t, p.InnerFit)
	assert.Nil(t, p.OuterFit)
	assert.NotEmpty(t, p.PNG)
}

func TestPlotEnergyShifts_NoData(t *testing.T) {
	t.Parallel()

	_, err := PlotEnergyShifts(nil, DefaultPlotOptions())
	assert.ErrorIs(t, err, ErrNoData)
}
