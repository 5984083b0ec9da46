// Package catalog holds the fixed set of agent functions the dashboard
// exposes: four modules of five n8n-backed workflows each. Function IDs are
// the stable "<module>.<slot>" strings the workflows key their replies on.
package catalog

import (
	"fmt"
	"net/url"
	"regexp"
)

// FunctionID identifies one agent function ("1.1" .. "4.5").
type FunctionID string

var functionIDPattern = regexp.MustCompile(`^[1-4]\.[1-5]$`)

// ParseFunctionID validates a raw function identifier from the wire.
func ParseFunctionID(raw string) (FunctionID, error) {
	if !functionIDPattern.MatchString(raw) {
		return "", fmt.Errorf("invalid function id %q", raw)
	}
	return FunctionID(raw), nil
}

func (id FunctionID) String() string { return string(id) }

// Module returns the module number the function belongs to (1-4).
func (id FunctionID) Module() int {
	return int(id[0] - '0')
}

// Function is one externally hosted automation workflow.
type Function struct {
	ID          FunctionID
	Name        string
	Description string
	WebhookURL  string
}

// Module groups five related functions under one agent persona.
type Module struct {
	ID          int
	Name        string
	Description string
	Functions   []Function
}

const defaultWebhookBase = "https://n8n.srv880021.hstgr.cloud"

// Catalog is the full set of modules, with webhook URLs optionally rebased
// onto a different n8n instance.
type Catalog struct {
	modules []Module
	byID    map[FunctionID]Function
}

// New builds the catalog. baseURLOverride, when non-empty, replaces the
// scheme+host of every webhook URL (path is preserved).
func New(baseURLOverride string) (*Catalog, error) {
	modules := modules()

	if baseURLOverride != "" {
		base, err := url.Parse(baseURLOverride)
		if err != nil {
			return nil, fmt.Errorf("parsing webhook base url: %w", err)
		}
		for mi := range modules {
			for fi := range modules[mi].Functions {
				fn := &modules[mi].Functions[fi]
				u, err := url.Parse(fn.WebhookURL)
				if err != nil {
					return nil, fmt.Errorf("parsing webhook url for %s: %w", fn.ID, err)
				}
				u.Scheme = base.Scheme
				u.Host = base.Host
				fn.WebhookURL = u.String()
			}
		}
	}

	byID := make(map[FunctionID]Function, 20)
	for _, m := range modules {
		for _, fn := range m.Functions {
			byID[fn.ID] = fn
		}
	}

	return &Catalog{modules: modules, byID: byID}, nil
}

// Modules returns the modules in dashboard order.
func (c *Catalog) Modules() []Module {
	return c.modules
}

// Lookup returns the function for an id, if it exists.
func (c *Catalog) Lookup(id FunctionID) (Function, bool) {
	fn, ok := c.byID[id]
	return fn, ok
}

func webhook(path string) string {
	return defaultWebhookBase + "/webhook-test/" + path
}

func modules() []Module {
	return []Module{
		{
			ID:          1,
			Name:        "Agente Legal Interactivo 24/7",
			Description: "Abogado virtual general que responde preguntas y ejecuta acciones legales básicas",
			Functions: []Function{
				{ID: "1.1", Name: "Chat Legal 24/7", Description: "Preguntas legales específicas con respuestas en segundos", WebhookURL: webhook("Chat-Legal-24-7")},
				{ID: "1.2", Name: "Revisión Rápida de Documentos", Description: "Análisis automático de documentos con resumen legal", WebhookURL: webhook("Revision-Rapida-Documentos")},
				{ID: "1.3", Name: "Generación de Informes Legales", Description: "Informes legales en PDF descargables por propiedad", WebhookURL: webhook("Generacion-Informes-Legales")},
				{ID: "1.4", Name: "Simulador de Problemas Legales", Description: "Anticipa problemas legales comunes por caso", WebhookURL: webhook("Simulador-Problemas-Legales")},
				{ID: "1.5", Name: "Buscador de Normativas Locales", Description: "Artículos de ley por comuna, ciudad o país", WebhookURL: webhook("Buscador-Normativas-Locales")},
			},
		},
		{
			ID:          2,
			Name:        "Agente de Contratos Inteligentes",
			Description: "Especialista en creación, revisión y corrección de contratos inmobiliarios",
			Functions: []Function{
				{ID: "2.1", Name: "Generador de Promesas de Compraventa", Description: "Contratos completos con cláusulas adaptadas por operación", WebhookURL: webhook("Generador-Promesas-Compraventa")},
				{ID: "2.2", Name: "Detección de Cláusulas Riesgosas", Description: "Identifica cláusulas peligrosas o ilegales automáticamente", WebhookURL: webhook("Deteccion-Clausulas-Riesgosas")},
				{ID: "2.3", Name: "Revisión de Arriendos y Cesiones", Description: "Análisis de errores y condiciones desfavorables", WebhookURL: webhook("Revision-Arriendos-Cesiones")},
				{ID: "2.4", Name: "Corrección Automática de Contratos", Description: "Ajustes legales para cumplimiento y reducción de conflictos", WebhookURL: webhook("Correccion-Automatica-Contratos")},
				{ID: "2.5", Name: "Análisis de Firmas Electrónicas", Description: "Validación legal de contratos con firma digital", WebhookURL: webhook("Analisis-Firmas-Electronicas")},
			},
		},
		{
			ID:          3,
			Name:        "Agente de Fiscalización y Riesgos",
			Description: "Evaluación de riesgos legales y verificación de cumplimiento normativo",
			Functions: []Function{
				{ID: "3.1", Name: "Verificador de Cumplimiento Legal", Description: "Evaluación de proyectos contra normativa vigente", WebhookURL: webhook("Verificador-Cumplimiento-Legal")},
				{ID: "3.2", Name: "Alertas Legales Automatizadas", Description: "Notificaciones por cambios de ley que afecten proyectos", WebhookURL: webhook("Alertas-Legales-Automatizadas")},
				{ID: "3.3", Name: "Semáforo Legal por Propiedad", Description: "Estado Verde, Amarillo o Rojo según riesgo legal", WebhookURL: webhook("Semaforo-Legal-Propiedad")},
				{ID: "3.4", Name: "Evaluación de Permisos Pendientes", Description: "Detección de permisos municipales o sanitarios faltantes", WebhookURL: webhook("Evaluacion-Permisos-Pendientes")},
				{ID: "3.5", Name: "Informe de Riesgo para Inversionistas", Description: "PDF de riesgo legal para presentar a inversores", WebhookURL: webhook("Informe-Riesgo-Inversionistas")},
			},
		},
		{
			ID:          4,
			Name:        "Agente de Automatización Legal",
			Description: "Automatización de tareas repetitivas y procesos legales",
			Functions: []Function{
				{ID: "4.1", Name: "Seguimiento Automático de Promesas", Description: "Recordatorios automáticos de vencimiento de contratos", WebhookURL: webhook("Seguimiento-Automatico-Promesas")},
				{ID: "4.2", Name: "Integración con Sistemas CRM", Description: "Generación automática de tareas legales desde CRM", WebhookURL: webhook("Integracion-Sistemas-CRM")},
				{ID: "4.3", Name: "Agenda Legal Automática", Description: "Eventos legales importantes en Google Calendar", WebhookURL: webhook("Agenda-Legal-Automatica")},
				{ID: "4.4", Name: "Automatización de Notificaciones Legales", Description: "Avisos legales automáticos a partes involucradas", WebhookURL: webhook("Automatizacion-Notificaciones-Legales")},
				{ID: "4.5", Name: "Recordatorio de Firmas Pendientes", Description: "Detección y aviso de firmas faltantes", WebhookURL: webhook("Recordatorio-Firmas-Pendientes")},
			},
		},
	}
}
