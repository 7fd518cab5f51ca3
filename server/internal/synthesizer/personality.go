package synthesizer

import (
	"strings"

	"exec-sim/server/internal/model"
)

// applyPersonality 阶段三：四个人格滑块各自的确定性改写。
// 返回改写后的内容、可能被升级的情绪、以及置信度加成（压缩后刻度）。
func applyPersonality(content string, emotion model.ResponseEmotion, state *model.SessionState) (string, model.ResponseEmotion, int) {
	bump := 0

	if state.Trait("analytical") > 70 {
		lower := strings.ToLower(content)
		if !strings.Contains(lower, "datos") && !strings.Contains(lower, "métricas") {
			content += " Necesito ver datos específicos y métricas concretas para evaluar esta propuesta adecuadamente."
		}
	}

	if state.Trait("patience") < 30 {
		content += " Necesito una respuesta rápida y decisiva."
		bump++
	}

	if state.Trait("aggression") > 70 {
		content = strings.ReplaceAll(content, "Interesante", "Francamente")
		content = strings.ReplaceAll(content, "Me gusta", "No estoy completamente convencido de")
		if emotion == model.RespNeutral {
			emotion = model.RespSkeptical
		}
	}

	if state.Trait("flexibility") < 30 {
		content += " Mi posición en este tema es firme y basada en experiencia previa."
		bump++
	}

	return content, emotion, bump
}
