package progress

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	u := Normalize(Update{Message: "hello", AddNewLine: true})
	assert.Equal(t, "hello\n", u.Message)
	assert.Equal(t, KindLog, u.Kind)

	u = Normalize(Update{Message: "done\n", AddNewLine: true, Kind: KindSynthesis})
	assert.Equal(t, "done\n", u.Message)
	assert.Equal(t, KindSynthesis, u.Kind)
}

func TestDispatch(t *testing.T) {
	assert.NoError(t, Dispatch(nil, Update{Message: "ignored"}))

	var got []Update
	err := Dispatch(func(u Update) error {
		got = append(got, u)
		return errors.New("client gone")
	}, Update{Message: "step", Kind: KindToolCall, StepID: "s-1"})

	assert.EqualError(t, err, "client gone")
	if assert.Len(t, got, 1) {
		assert.True(t, got[0].IsStep())
	}
}
