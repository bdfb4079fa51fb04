package gpu

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jezek/xgb/glx"
	"github.com/jezek/xgb/xproto"
)

// ErrNoFBConfig is returned when the server offers no framebuffer
// configuration matching the requirements.
var ErrNoFBConfig = errors.New("no matching framebuffer configuration")

// FBConfig is one framebuffer configuration as reported by GetFBConfigs.
type FBConfig struct {
	ID     glx.Fbconfig
	Visual xproto.Visualid
	Attrs  map[uint32]uint32
}

// Attr returns the value of attribute name, or 0 when the server did not
// report it.
func (c FBConfig) Attr(name uint32) uint32 {
	return c.Attrs[name]
}

func (c FBConfig) String() string {
	return fmt.Sprintf("fbconfig 0x%x (visual 0x%x, rgba %d/%d/%d/%d, double %d)",
		uint32(c.ID), uint32(c.Visual),
		c.Attr(AttrRedSize), c.Attr(AttrGreenSize), c.Attr(AttrBlueSize), c.Attr(AttrAlphaSize),
		c.Attr(AttrDoubleBuffer))
}

// ParseFBConfigs decodes the property list of a GetFBConfigs reply. Each
// config occupies numProps attribute/value pairs. A short list yields only
// the configs it fully contains.
func ParseFBConfigs(numConfigs, numProps uint32, props []uint32) []FBConfig {
	stride := int(numProps) * 2
	if stride == 0 {
		return nil
	}

	configs := make([]FBConfig, 0, numConfigs)
	for i := 0; i < int(numConfigs); i++ {
		start := i * stride
		if start+stride > len(props) {
			break
		}

		cfg := FBConfig{Attrs: make(map[uint32]uint32, numProps)}
		for j := start; j < start+stride; j += 2 {
			cfg.Attrs[props[j]] = props[j+1]
		}
		cfg.ID = glx.Fbconfig(cfg.Attrs[AttrFBConfigID])
		cfg.Visual = xproto.Visualid(cfg.Attrs[AttrVisualID])
		configs = append(configs, cfg)
	}
	return configs
}

// Requirements describe the framebuffer the mirror renders into.
type Requirements struct {
	DoubleBuffered bool
}

func (r Requirements) matches(c FBConfig) bool {
	if c.Attr(AttrDrawableType)&WindowBit == 0 {
		return false
	}
	if c.Attr(AttrRenderType)&RGBABit == 0 {
		return false
	}
	for _, size := range []uint32{AttrRedSize, AttrGreenSize, AttrBlueSize, AttrAlphaSize} {
		if c.Attr(size) < 8 {
			return false
		}
	}
	if (c.Attr(AttrDoubleBuffer) != 0) != r.DoubleBuffered {
		return false
	}
	return c.Visual != 0
}

// Choose picks the best configuration for req. Configs that can also wrap
// pixmaps as RGBA textures sort first; otherwise server order is kept.
func Choose(configs []FBConfig, req Requirements) (FBConfig, error) {
	var candidates []FBConfig
	for _, c := range configs {
		if req.matches(c) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return FBConfig{}, ErrNoFBConfig
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return textureScore(candidates[i]) > textureScore(candidates[j])
	})
	return candidates[0], nil
}

func textureScore(c FBConfig) int {
	score := 0
	if c.Attr(AttrBindToTextureRGBA) != 0 {
		score += 2
	}
	if c.Attr(AttrDrawableType)&PixmapBit != 0 {
		score++
	}
	return score
}
