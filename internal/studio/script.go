package studio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MrWong99/cynicast/internal/observe"
	"github.com/MrWong99/cynicast/pkg/provider/llm"
)

// Defaults for an empty [ScriptRequest].
const (
	DefaultToolName      = "Gemini"
	DefaultHostName      = "Cyber-Vato"
	DefaultPodcastName   = "El Algoritmo Bizarro"
	DefaultToneIntensity = 7

	// ScriptTemperature favours creative output.
	ScriptTemperature = 0.8

	// FallbackScript is returned when the model produced no text.
	FallbackScript = "Hubo un error generando el guion. Intenta de nuevo."
)

// ScriptRequest is the episode brief.
type ScriptRequest struct {
	ToolName      string `json:"tool_name"`
	ToneIntensity int    `json:"tone_intensity"`
	PodcastName   string `json:"podcast_name"`
	HostName      string `json:"host_name"`
}

// ApplyDefaults fills empty fields. A zero intensity becomes the default;
// out-of-range values are left for Validate to reject.
func (r *ScriptRequest) ApplyDefaults() {
	r.ToolName = strings.TrimSpace(r.ToolName)
	r.PodcastName = strings.TrimSpace(r.PodcastName)
	r.HostName = strings.TrimSpace(r.HostName)
	if r.ToolName == "" {
		r.ToolName = DefaultToolName
	}
	if r.PodcastName == "" {
		r.PodcastName = DefaultPodcastName
	}
	if r.HostName == "" {
		r.HostName = DefaultHostName
	}
	if r.ToneIntensity == 0 {
		r.ToneIntensity = DefaultToneIntensity
	}
}

// Validate reports whether r can be turned into a prompt.
func (r ScriptRequest) Validate() error {
	if r.ToneIntensity < 1 || r.ToneIntensity > 10 {
		return fmt.Errorf("%w: got %d", ErrInvalidIntensity, r.ToneIntensity)
	}
	return nil
}

// Script is a generated episode.
type Script struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	ToolName string `json:"tool_name"`
}

// Writer generates podcast scripts.
type Writer struct {
	llm llm.Provider
	options
}

// NewWriter returns a Writer that uses p for generation.
func NewWriter(p llm.Provider, opts ...Option) *Writer {
	return &Writer{llm: p, options: applyOptions(opts)}
}

// Generate writes a script for req. Defaults are applied to a copy of req
// before validation.
func (w *Writer) Generate(ctx context.Context, req ScriptRequest) (*Script, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := observe.StartSpan(ctx, "studio.script")
	defer span.End()
	span.SetAttributes(
		attribute.String("tool_name", req.ToolName),
		attribute.Int("tone_intensity", req.ToneIntensity),
	)

	start := time.Now()
	resp, err := w.llm.Complete(ctx, llm.CompletionRequest{
		SystemPrompt:    scriptSystemPrompt(req),
		Messages:        []llm.Message{llm.UserMessage(scriptPrompt(req))},
		Temperature:     ScriptTemperature,
		DisableThinking: true,
	})
	w.observeCall(ctx, w.metrics.LLMDuration, "script", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("studio: generate script: %w", err)
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		w.log.Warn("studio: model returned an empty script", "tool_name", req.ToolName)
		content = FallbackScript
	}
	w.log.Info("studio: script generated",
		"tool_name", req.ToolName,
		"tokens", resp.Usage.TotalTokens,
		"duration", time.Since(start),
	)
	return &Script{
		Title:    fmt.Sprintf("%s: %s", req.PodcastName, req.ToolName),
		Content:  content,
		ToolName: req.ToolName,
	}, nil
}

func scriptSystemPrompt(r ScriptRequest) string {
	return fmt.Sprintf(`Actúa como un guionista y productor creativo de un podcast de tecnología de culto.
El tono debe ser: Informativo pero altamente Crítico, Sarcástico, Ácido y Humorístico.
Estilo inspirado en: "La Tele", "El Siguiente Programa", "En caso de que el mundo se desintegre".

Tu objetivo es escribir un guion completo para un episodio de 20-30 minutos, en una versión condensada pero completa de unas 1000-1500 palabras.

Audiencia: Millennials y Gen X desencantados (20-45 años).

Formato del guion:
- Usa etiquetas claras para personajes: [HOST: %[1]s], [IA INVITADA], [SFX], [MÚSICA], [TRANSICIÓN].
- Incluye indicaciones técnicas para Adobe Audition (ej: "Fade out", "Compresión de voz", "Efecto de radio antigua").
- **TRANSICIONES:** Entre cada sección del guion, DEBES insertar explícitamente una transición de audio creativa. Ejemplo: [TRANSICIÓN: Ruido blanco y corte seco], [TRANSICIÓN: Sintonización de radio vieja], [TRANSICIÓN: Fade out con eco].

Estructura obligatoria del episodio:
1. **Banda Sonora (Intro):** Sugiere una música de intro específica y libre de derechos (Royalty Free). Describe el estilo y explica sarcásticamente por qué encaja con el tema de hoy.
2. **Intro:** Presentación del tema (%[2]s) con tono irónico.
3. **Contexto Histórico (La parte aburrida):** Breve historia de la herramienta.
4. **Para qué sirve realmente:** Principales usos y puntos fuertes.
5. **El Lado Oscuro (Sección de humor):** Ejemplos de mal uso, alucinaciones, o aplicaciones cuestionables/ridículas.
6. **Top 5:** Los 5 mejores usos (o los más vagos).
7. **La Entrevista:** Conversación entre el HOST y una personificación de la IA (%[2]s) con una personalidad basada en sus estereotipos.
8. **Conclusión:** Reflexión final ácida y despedida.`, r.HostName, r.ToolName)
}

func scriptPrompt(r ScriptRequest) string {
	return fmt.Sprintf(`Escribe el guion para el podcast "%s".
Tema del episodio: %s.
Nivel de sarcasmo (1-10): %d.
Host: %s.

Asegúrate de que el humor sea inteligente y las críticas a la tecnología sean agudas.
Incluye sugerencias de efectos de sonido (SFX) específicos para usar en post-producción.
IMPORTANTE:
1. No olvides la sección de sugerencia musical al principio.
2. Añade sugerencias de transiciones de audio (corte seco, fade out, efectos) entre CADA sección.`,
		r.PodcastName, r.ToolName, r.ToneIntensity, r.HostName)
}
