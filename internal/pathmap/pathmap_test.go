package pathmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixMapper_ReplacesRoot(t *testing.T) {
	m := PrefixMapper{SourceRoot: "/data/src", DestRoot: "/data/dst"}

	assert.Equal(t, "/data/dst/a.txt", m.Map("/data/src/a.txt"))
	assert.Equal(t, "/data/dst/sub/deep/b.bin", m.Map("/data/src/sub/deep/b.bin"))
}

func TestPrefixMapper_RootItself(t *testing.T) {
	m := PrefixMapper{SourceRoot: "/data/src", DestRoot: "/data/dst"}
	assert.Equal(t, "/data/dst", m.Map("/data/src"))
}

func TestPrefixMapper_OutsideRootFallsBackToBasename(t *testing.T) {
	m := PrefixMapper{SourceRoot: "/data/src", DestRoot: "/data/dst"}

	assert.Equal(t, "/data/dst/stray.txt", m.Map("/elsewhere/stray.txt"))
}

func TestPrefixMapper_SiblingPrefixNotConfused(t *testing.T) {
	// "/data/srcother" shares a string prefix with "/data/src" but is not
	// inside it.
	m := PrefixMapper{SourceRoot: "/data/src", DestRoot: "/data/dst"}

	assert.Equal(t, "/data/dst/f.txt", m.Map("/data/srcother/f.txt"))
}

func TestFunc_Adapts(t *testing.T) {
	m := Func(func(p string) string { return "/mirror" + p })
	assert.Equal(t, "/mirror/x", m.Map("/x"))
}
