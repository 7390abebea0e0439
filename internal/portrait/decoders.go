package portrait

import (
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)
