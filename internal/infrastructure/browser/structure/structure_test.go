package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintIgnoresText(t *testing.T) {
	a, err := Fingerprint(`<html><body><div class="card"><p>first article text</p></div></body></html>`)
	require.NoError(t, err)
	b, err := Fingerprint(`<html><body><div class="card"><p>completely different words here</p></div></body></html>`)
	require.NoError(t, err)

	assert.Equal(t, a.Hash, b.Hash)
	assert.Equal(t, a.TagCounts, b.TagCounts)
}

func TestFingerprintDetectsLayoutChange(t *testing.T) {
	home, err := Fingerprint(`<html><body>
		<nav><a href="/">home</a></nav>
		<div class="hero"><h1>welcome</h1></div>
		<div class="grid"><div class="card"></div><div class="card"></div><div class="card"></div></div>
	</body></html>`)
	require.NoError(t, err)

	detail, err := Fingerprint(`<html><body>
		<nav><a href="/">home</a></nav>
		<article class="product"><img src="x.jpg"/><h1>item</h1><form><button>buy</button></form></article>
	</body></html>`)
	require.NoError(t, err)

	assert.NotEqual(t, home.Hash, detail.Hash)
	assert.Greater(t, home.Delta(*detail), 0.3)
}

func TestFingerprintIgnoresScripts(t *testing.T) {
	a, err := Fingerprint(`<html><body><div></div><script>var x = 1;</script></body></html>`)
	require.NoError(t, err)
	b, err := Fingerprint(`<html><body><div></div><script>var y = 2; console.log(y);</script></body></html>`)
	require.NoError(t, err)

	assert.Equal(t, a.Hash, b.Hash)
	assert.Zero(t, a.TagCounts["script"])
}

func TestFingerprintAttrOrderStable(t *testing.T) {
	a, err := Fingerprint(`<div class="x" id="y"></div>`)
	require.NoError(t, err)
	b, err := Fingerprint(`<div id="y" class="x"></div>`)
	require.NoError(t, err)

	assert.Equal(t, a.Hash, b.Hash)
}

func TestDeltaSmallForMinorChange(t *testing.T) {
	a, err := Fingerprint(`<html><body><ul><li></li><li></li><li></li><li></li><li></li><li></li><li></li><li></li><li></li><li></li></ul></body></html>`)
	require.NoError(t, err)
	b, err := Fingerprint(`<html><body><ul><li></li><li></li><li></li><li></li><li></li><li></li><li></li><li></li><li></li><li></li><li></li></ul></body></html>`)
	require.NoError(t, err)

	assert.Less(t, a.Delta(*b), 0.3)
}
