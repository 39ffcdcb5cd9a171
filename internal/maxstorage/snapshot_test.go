package maxstorage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var liveSnapshot = Snapshot{
	"batterySoC":   55.0,
	"batteryPower": 1500,
	"SpecialState": map[string]interface{}{
		"islandActive": "true",
	},
}

func Test_ValuePassthrough(t *testing.T) {
	value, err := liveSnapshot.Value("batteryPower")
	assert.NoError(t, err)
	assert.Equal(t, 1500, value)
}

func Test_ValueMissing(t *testing.T) {
	_, err := liveSnapshot.Value("gridPower")
	assert.Error(t, err)
	assert.True(t, IsMissingField(err))
	assert.EqualError(t, err, `snapshot missing required field "gridPower"`)
}

func Test_FlagDecoding(t *testing.T) {
	cases := map[string]bool{
		"true":  true,
		"false": false,
		"TRUE":  false,
		"True":  false,
		"1":     false,
		"":      false,
	}
	for raw, expected := range cases {
		snapshot := Snapshot{
			"SpecialState": map[string]interface{}{"islandActive": raw},
		}
		flag, err := snapshot.Flag("SpecialState", "islandActive")
		assert.NoError(t, err)
		assert.Equal(t, expected, flag, "flag value %q", raw)
	}
}

func Test_FlagMissingBlock(t *testing.T) {
	snapshot := Snapshot{"batteryPower": 1500}
	_, err := snapshot.Flag("SpecialState", "islandActive")
	assert.True(t, IsMissingField(err))
}

func Test_FlagMissingKey(t *testing.T) {
	snapshot := Snapshot{"SpecialState": map[string]interface{}{}}
	_, err := snapshot.Flag("SpecialState", "islandActive")
	assert.True(t, IsMissingField(err))
	assert.EqualError(t, err, `snapshot missing required field "SpecialState.islandActive"`)
}

func Test_SubMapWrongShape(t *testing.T) {
	snapshot := Snapshot{"SpecialState": "surprise"}
	_, err := snapshot.SubMap("SpecialState")
	assert.True(t, IsMissingField(err))
}
