package banner

import (
	"chaosq/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
       __                           
  ____/ /_  ____ _____  _________ _ 
 / ___/ __ \/ __ '/ __ \/ ___/ __ '/ 
/ /__/ / / / /_/ / /_/ (__  ) /_/ /  
\___/_/ /_/\__,_/\____/____/\__, /   
                              /_/    `

	return "\n" + style.Render(ascii) + "\n"
}
