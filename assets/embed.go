// Package assets embeds the application artwork served through the
// gateway: the logo in its margin and margin-free variants, and named
// UI preview images.
package assets

import (
	"embed"
	"fmt"
)

//go:embed logo.png logo_nomargin.png previews/*.png
var files embed.FS

const logoName = "peerwatch"

// LogoName identifies the embedded logo variant.
func LogoName() string { return logoName }

// AppLogo returns the PNG bytes of the application logo.
func AppLogo() []byte {
	return mustRead("logo.png")
}

// AppLogoNoMargin returns the logo variant without the outer margin,
// for contexts that apply their own padding.
func AppLogoNoMargin() []byte {
	return mustRead("logo_nomargin.png")
}

// Preview returns the PNG bytes of a named preview image.
func Preview(name string) ([]byte, error) {
	data, err := files.ReadFile("previews/" + name + ".png")
	if err != nil {
		return nil, fmt.Errorf("unknown preview %q: %w", name, err)
	}
	return data, nil
}

func mustRead(name string) []byte {
	data, err := files.ReadFile(name)
	if err != nil {
		// Embedded files are part of the binary; a miss is a build
		// defect, not a runtime condition.
		panic(fmt.Sprintf("assets: missing embedded file %s: %v", name, err))
	}
	return data
}
