package gpu

// GLX attribute names and values.
const (
	glxExtensions = 0x3

	AttrDoubleBuffer = 5
	AttrRedSize      = 8
	AttrGreenSize    = 9
	AttrBlueSize     = 10
	AttrAlphaSize    = 11
	AttrVisualID     = 0x800B
	AttrDrawableType = 0x8010
	AttrRenderType   = 0x8011
	AttrFBConfigID   = 0x8013

	AttrBindToTextureRGBA = 0x20D1
	AttrTextureFormat     = 0x20D5
	AttrTextureTarget     = 0x20D6

	WindowBit = 0x1
	PixmapBit = 0x2
	RGBABit   = 0x1

	rgbaType = 0x8014

	texture2DExt      = 0x20DC
	textureFormatRGBA = 0x20DA
	frontLeftExt      = 0x20DE
)

// Vendor private opcodes of GLX_EXT_texture_from_pixmap.
const (
	vopBindTexImage    = 1330
	vopReleaseTexImage = 1331
)

// TextureFromPixmap is the GLX extension the bridge depends on.
const TextureFromPixmap = "GLX_EXT_texture_from_pixmap"

// GL enums used by the draw cycle.
const (
	Quads            = 0x0007
	ColorBufferBit   = 0x4000
	Texture2D        = 0x0DE1
	TextureMagFilter = 0x2800
	TextureMinFilter = 0x2801
	Linear           = 0x2601
)

// GLX render opcodes.
const (
	OpBegin         = 4
	OpTexCoord2fv   = 54
	OpVertex3fv     = 70
	OpEnd           = 23
	OpTexParameteri = 107
	OpClear         = 127
	OpClearColor    = 130
	OpEnable        = 139
	OpViewport      = 191
	OpBindTexture   = 4117
)
