// prompt.go builds the Spanish extraction prompt sent to the model.
package extract

import (
	"fmt"
	"strings"
	"time"
)

// UnknownDay is the weekday sentinel used when the report date cannot be
// parsed. An unparseable date degrades the prompt, never the pipeline.
const UnknownDay = "Desconocido"

var spanishDays = [...]string{
	time.Monday:    "Lunes",
	time.Tuesday:   "Martes",
	time.Wednesday: "Miércoles",
	time.Thursday:  "Jueves",
	time.Friday:    "Viernes",
	time.Saturday:  "Sábado",
	time.Sunday:    "Domingo",
}

// Weekday derives the Spanish weekday label from a MM/DD/YYYY report date.
func Weekday(reportDate string) string {
	dt, err := time.Parse("01/02/2006", strings.TrimSpace(reportDate))
	if err != nil {
		return UnknownDay
	}
	return spanishDays[dt.Weekday()]
}

// BuildPrompt embeds the complaint text, the report date and its weekday,
// and the output-schema rules the model must follow.
func BuildPrompt(text, reportDate, dayOfWeek, extraRules string) string {
	var b strings.Builder
	b.WriteString("Analiza el siguiente texto de una denuncia y extrae la siguiente información en formato JSON:\n")
	b.WriteString("1. \"sintesis\": Un resumen de máximo 300 caracteres.\n")
	b.WriteString("2. \"tiempo\": ¿Cuándo ocurrió?\n")
	b.WriteString(fmt.Sprintf("   - Primero, detecta que la \"Fecha del reporte\" cae en un día: %s.\n", dayOfWeek))
	b.WriteString("   - Si el texto indica un rango de tiempo (ej. \"la semana pasada\", \"hace dos semanas\"), calcula las fechas exactas basándote en la fecha del reporte.\n")
	b.WriteString("   - REGLA DE ORO: Si provees un rango, este debe estar delimitado SIEMPRE por una fecha inicial que sea LUNES y una fecha final que sea DOMINGO.\n")
	b.WriteString("   - Formato deseado: \"MM/DD/AAAA\" o \"En la semana del DD/MM/AAAA al DD/MM/AAAA\".\n")
	b.WriteString("3. \"modo\": ¿Cómo se ejecutó? Describe la mecánica del presunto soborno o irregularidad: mensajes, reuniones, entregas, correos, etc. ")
	b.WriteString("Ejemplo: \"El técnico presuntamente contactó al gestor vía WhatsApp desde un número privado, citándolo en una cafetería para la entrega del efectivo (USD $500.00)\".\n")
	b.WriteString("4. \"circunstancia\": ¿En qué contexto? Indica licitaciones específicas, trámites determinados, lugares, presencia de terceros.\n")
	b.WriteString("5. \"alcaldia\": ¿En qué alcaldía sucedieron los hechos? Extrae el nombre del municipio o alcaldía. Ejemplo: \"San Juan\", \"PaloAlto\".\n")
	b.WriteString("6. \"es_anonima\": ¿Es anónima? Responde \"SI\" o \"NO\" basándote en si el usuario solicitó anonimato o no proporcionó su nombre.\n")
	b.WriteString("\nREGLA GENERAL: Si se mencionan montos de dinero en cualquiera de los campos, escríbelos también con números y signo de dinero. Ejemplo: \"un millón de dólares (USD $1,000,000.00)\".\n")
	if rules := strings.TrimSpace(extraRules); rules != "" {
		b.WriteString(rules)
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("\nFecha del reporte: %s (Día: %s)\nTexto:\n%s\n", reportDate, dayOfWeek, text))
	b.WriteString("\nResponde ÚNICAMENTE con el JSON válido.\n")
	return b.String()
}
