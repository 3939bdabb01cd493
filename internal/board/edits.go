package board

import "github.com/haasonsaas/boxgrid/pkg/models"

// Edit is a pure box transform, suitable for Engine.UpdateBox.
type Edit func(models.Box) models.Box

// ApplyPatch returns an edit that merges p into a box.
func ApplyPatch(p models.BoxPatch) Edit {
	return func(b models.Box) models.Box { return p.Apply(b) }
}

// Chain applies edits in order.
func Chain(edits ...Edit) Edit {
	return func(b models.Box) models.Box {
		for _, edit := range edits {
			if edit != nil {
				b = edit(b)
			}
		}
		return b
	}
}

func SetKind(kind models.BoxKind) Edit {
	return ApplyPatch(models.BoxPatch{Kind: &kind})
}

func SetLink(link string) Edit {
	return ApplyPatch(models.BoxPatch{Link: &link})
}

func SetTextContent(content string) Edit {
	return ApplyPatch(models.BoxPatch{Text: &models.TextPatch{Content: &content}})
}

func SetTextAlign(align string) Edit {
	return ApplyPatch(models.BoxPatch{Text: &models.TextPatch{Align: &align}})
}

func SetTextColor(color string) Edit {
	return ApplyPatch(models.BoxPatch{Text: &models.TextPatch{Color: &color}})
}

func SetImageSource(src string) Edit {
	return ApplyPatch(models.BoxPatch{Image: &models.ImagePatch{Source: &src}})
}

func SetImageFit(fit string) Edit {
	return ApplyPatch(models.BoxPatch{Image: &models.ImagePatch{ObjectFit: &fit}})
}

func SetImageRadius(radius float64) Edit {
	return ApplyPatch(models.BoxPatch{Image: &models.ImagePatch{Radius: &radius}})
}

func SetImagePadding(padding string) Edit {
	return ApplyPatch(models.BoxPatch{Image: &models.ImagePatch{Padding: &padding}})
}

func SetBorderWidth(width string) Edit {
	return ApplyPatch(models.BoxPatch{Border: &models.BorderPatch{Width: &width}})
}

func SetBorderColor(color string) Edit {
	return ApplyPatch(models.BoxPatch{Border: &models.BorderPatch{Color: &color}})
}

func SetBorderRadius(radius float64) Edit {
	return ApplyPatch(models.BoxPatch{Border: &models.BorderPatch{Radius: &radius}})
}

func SetBackgroundColor(color string) Edit {
	return ApplyPatch(models.BoxPatch{Background: &models.BackgroundPatch{Color: &color}})
}

// SetBackgroundOpacity sets the opacity percentage, clamped to 0..100.
func SetBackgroundOpacity(percent float64) Edit {
	return ApplyPatch(models.BoxPatch{Background: &models.BackgroundPatch{Opacity: &percent}})
}

func SetBackgroundBlur(px float64) Edit {
	return ApplyPatch(models.BoxPatch{Background: &models.BackgroundPatch{Blur: &px}})
}
