package chromedp

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strings"
)

// Resolution is a screen size in CSS pixels.
type Resolution struct {
	Width  int
	Height int
}

var resolutions = []Resolution{
	{1920, 1080},
	{1366, 768},
	{1440, 900},
	{1536, 864},
	{1280, 720},
	{1600, 900},
	{1680, 1050},
	{2560, 1440},
}

// Only Chromium user agents: a Firefox UA on Chrome is itself a fingerprint.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/94.0.4606.81 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/94.0.4606.81 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/94.0.4606.81 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/94.0.4606.81 Safari/537.36 Edg/94.0.992.47",
}

var webGLVendors = []string{
	"Google Inc. (Intel)",
	"Google Inc. (NVIDIA)",
	"Google Inc. (AMD)",
}

var webGLRenderers = []string{
	"ANGLE (Intel, Intel(R) UHD Graphics Direct3D11 vs_5_0 ps_5_0)",
	"ANGLE (NVIDIA, NVIDIA GeForce GTX 1650 Direct3D11 vs_5_0 ps_5_0)",
	"ANGLE (AMD, AMD Radeon RX 580 Direct3D11 vs_5_0 ps_5_0)",
}

var plugins = []string{
	"Chrome PDF Plugin",
	"Chrome PDF Viewer",
	"Native Client",
}

// Identity is the browser fingerprint presented to sites.
type Identity struct {
	UserAgent     string
	Platform      string
	Resolution    Resolution
	WebGLVendor   string
	WebGLRenderer string
	Languages     []string
}

// NewIdentity draws a random desktop identity from rng. A nil rng uses a
// randomly seeded source. The platform always matches the user agent.
func NewIdentity(rng *rand.Rand) Identity {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	ua := pick(rng, userAgents)
	return Identity{
		UserAgent:     ua,
		Platform:      platformOf(ua),
		Resolution:    pick(rng, resolutions),
		WebGLVendor:   pick(rng, webGLVendors),
		WebGLRenderer: pick(rng, webGLRenderers),
		Languages:     []string{"en-US", "en"},
	}
}

func pick[T any](rng *rand.Rand, pool []T) T {
	return pool[rng.IntN(len(pool))]
}

func platformOf(ua string) string {
	switch {
	case strings.Contains(ua, "Macintosh"):
		return "MacIntel"
	case strings.Contains(ua, "Linux"):
		return "Linux x86_64"
	default:
		return "Win32"
	}
}

// Script returns JavaScript that installs the identity before any page
// script runs: navigator.webdriver is hidden, navigator properties report the
// identity and WebGL reports the spoofed GPU.
func (id Identity) Script() string {
	return fmt.Sprintf(`(() => {
  const define = (obj, prop, value) =>
    Object.defineProperty(obj, prop, { get: () => value, configurable: true });
  define(Navigator.prototype, 'webdriver', undefined);
  define(Navigator.prototype, 'platform', %s);
  define(Navigator.prototype, 'languages', %s);
  define(Navigator.prototype, 'plugins', %s.map((name) => ({ name })));
  define(screen, 'width', %d);
  define(screen, 'height', %d);
  define(screen, 'availWidth', %d);
  define(screen, 'availHeight', %d);
  window.chrome = window.chrome || { runtime: {} };
  const vendor = %s;
  const renderer = %s;
  for (const ctx of [window.WebGLRenderingContext, window.WebGL2RenderingContext]) {
    if (!ctx) continue;
    const getParameter = ctx.prototype.getParameter;
    ctx.prototype.getParameter = function (p) {
      if (p === 37445) return vendor;
      if (p === 37446) return renderer;
      return getParameter.call(this, p);
    };
  }
})();`,
		jsString(id.Platform),
		jsValue(id.Languages),
		jsValue(plugins),
		id.Resolution.Width, id.Resolution.Height,
		id.Resolution.Width, id.Resolution.Height,
		jsString(id.WebGLVendor),
		jsString(id.WebGLRenderer),
	)
}

func jsString(s string) string {
	return jsValue(s)
}

// jsValue renders v as a JavaScript literal. JSON is valid JavaScript.
func jsValue(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
