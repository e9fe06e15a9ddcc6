package kmain

import (
	"reflect"
	"testing"
)

func TestParseCmdLine(t *testing.T) {
	specs := []struct {
		input string
		exp   map[string]string
	}{
		{"", map[string]string{}},
		{"   ", map[string]string{}},
		{"init=shell quiet", map[string]string{"init": "shell", "quiet": "quiet"}},
		{"  prio_levels=16\tedf_band=15  ", map[string]string{"prio_levels": "16", "edf_band": "15"}},
		{"a=b=c =x key=", map[string]string{"key": ""}},
		{"init=a init=b", map[string]string{"init": "b"}},
	}

	for specIndex, spec := range specs {
		if got := ParseCmdLine(spec.input); !reflect.DeepEqual(got, spec.exp) {
			t.Errorf("[spec %d] expected %v; got %v", specIndex, spec.exp, got)
		}
	}
}
