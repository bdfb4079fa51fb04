package gpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionOK(t *testing.T) {
	assert.False(t, versionOK(0, 9))
	assert.False(t, versionOK(1, 2))
	assert.True(t, versionOK(1, 3))
	assert.True(t, versionOK(1, 4))
	assert.True(t, versionOK(2, 0))
}

func TestHasExtension(t *testing.T) {
	list := "GLX_ARB_multisample GLX_EXT_texture_from_pixmap GLX_SGI_swap_control"
	assert.True(t, hasExtension(list, TextureFromPixmap))
	assert.False(t, hasExtension(list, "GLX_EXT_texture"))
	assert.False(t, hasExtension("", TextureFromPixmap))
	assert.True(t, hasExtension("GLX_ARB_multisample "+TextureFromPixmap+"\x00", TextureFromPixmap))
}
