package compiler

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/bindings"
	"github.com/Carmen-Shannon/codeskew-go/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreludeAliases(t *testing.T) {
	prelude := BuildPrelude(bindings.NewRegistry(8, 8), nil)

	for _, want := range []string{
		"alias int = i32;\n",
		"alias uint = u32;\n",
		"alias float = f32;\n",
		"alias int2 = vec2<i32>;\n",
		"alias uint3 = vec3<u32>;\n",
		"alias float4 = vec4<f32>;\n",
		"alias bool4 = vec4<bool>;\n",
		"alias float2x3 = mat2x3<f32>;\n",
		"alias float4x4 = mat4x4<f32>;\n",
	} {
		assert.Contains(t, prelude, want)
	}
	assert.Less(t, strings.Index(prelude, "alias float ="), strings.Index(prelude, "struct Time"))
}

func TestPreludeCustomRegenerated(t *testing.T) {
	reg := bindings.NewRegistry(8, 8)

	assert.Contains(t, BuildPrelude(reg, nil), "struct Custom {\n    _dummy: float,\n};\n")

	require.NoError(t, reg.SetCustomFloats([]string{"speed", "zoom"}, []float32{1, 2}))
	assert.Contains(t, BuildPrelude(reg, nil), "struct Custom {\n    speed: float,\n    zoom: float,\n};\n")

	require.NoError(t, reg.SetCustomFloats(nil, nil))
	assert.Contains(t, BuildPrelude(reg, nil), "struct Custom {\n    _dummy: float,\n};\n")
}

func TestPreludeDataStruct(t *testing.T) {
	reg := bindings.NewRegistry(8, 8)

	sm, err := shader.NewPreProcessor(nil).Run(t.Context(), "#data tbl u32 1,2\n#data tbl u32 3\n#data other u32 0x10\n")
	require.NoError(t, err)
	assert.Contains(t, BuildPrelude(reg, sm), "struct Data {\n    tbl: array<u32,3>,\n    other: array<u32,1>,\n};\n")

	empty, err := shader.NewPreProcessor(nil).Run(t.Context(), "fn f() {}\n")
	require.NoError(t, err)
	assert.Contains(t, BuildPrelude(reg, empty), "struct Data {\n    _dummy: array<u32,1>,\n};\n")
}

func TestPreludeBindingsAndHelpers(t *testing.T) {
	prelude := BuildPrelude(bindings.NewRegistry(8, 8), nil)

	assert.Contains(t, prelude, "var<uniform> time: Time;")
	assert.Contains(t, prelude, "fn keyDown(keycode: uint) -> bool")
	assert.Contains(t, prelude, "fn assert(index: int, success: bool)")
	assert.Contains(t, prelude, "fn passStore(")
	assert.Contains(t, prelude, "fn passLoad(")
	assert.Contains(t, prelude, "fn passSampleLevelBilinearRepeat(")
	assert.NotContains(t, prelude, "_storage0")
	assert.True(t, strings.HasSuffix(prelude, "\n"))

	assert.Less(t, strings.Index(prelude, "struct Data"), strings.Index(prelude, "var<storage,read> data: Data;"))
	assert.Less(t, strings.Index(prelude, "var<uniform> _keyboard"), strings.Index(prelude, "fn keyDown"))
}

func TestUnitSourceLine(t *testing.T) {
	sm, err := shader.NewPreProcessor(nil).Run(t.Context(), "#define A 1\nlet x = A;\nlet y = A;\n")
	require.NoError(t, err)

	unit := Unit{Extensions: "enable f16;\n", Prelude: "a\nb\n", Body: sm.Source}
	assert.Equal(t, 3, unit.BodyOffset())
	assert.Equal(t, 0, unit.SourceLine(sm, 0))
	assert.Equal(t, 0, unit.SourceLine(sm, 3))
	assert.Equal(t, 2, unit.SourceLine(sm, 4))
	assert.Equal(t, 3, unit.SourceLine(sm, 5))
	assert.Equal(t, 0, unit.SourceLine(sm, 6))
}
