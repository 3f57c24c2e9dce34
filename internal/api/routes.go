package api

import (
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

const maxRequestBodyBytes = 1 << 20

// NewApp builds the Fiber app with the shared middleware chain. Extra
// middleware runs after language detection and before any route.
func NewApp(handler *Handler, middleware ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "heartnote",
		ErrorHandler:          handler.ErrorHandler,
		BodyLimit:             maxRequestBodyBytes,
		DisableStartupMessage: true,
	})

	app.Use(requestid.New(requestid.Config{
		Header:     fiber.HeaderXRequestID,
		Generator:  uuid.NewString,
		ContextKey: requestIDContextKey,
	}))
	app.Use(RequestLogger(handler.logger))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, recovered any) {
			handler.logger.Error().
				Str("request_id", requestID(c)).
				Str("panic", fmt.Sprint(recovered)).
				Str("stack", string(debug.Stack())).
				Msg("recovered from panic")
		},
	}))
	app.Use(handler.LanguageMiddleware)
	for _, extra := range middleware {
		app.Use(extra)
	}

	RegisterRoutes(app, handler)
	app.Use(handler.NotFound)
	return app
}

func RegisterRoutes(app *fiber.App, handler *Handler) {
	app.Get("/healthz", handler.Health)
	app.Get("/readyz", handler.Ready)
	app.Get("/lang/:lang", handler.SetLanguage)

	registerAPIRoutes(app, handler)
}

func registerAPIRoutes(app *fiber.App, handler *Handler) {
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/signup", handler.Signup)
	auth.Post("/login", handler.Login)
	auth.Post("/line-login", handler.LineLogin)
	auth.Post("/logout", handler.AuthRequired, handler.Logout)
	auth.Get("/me", handler.AuthRequired, handler.Me)
	auth.Post("/change-password", handler.AuthRequired, handler.ChangePassword)

	healthRecords := api.Group("/health-records", handler.AuthRequired, handler.PatientOnly)
	healthRecords.Get("/calendar", handler.HealthRecordCalendar)
	healthRecords.Get("/trends", handler.HealthRecordTrends)
	healthRecords.Get("", handler.ListHealthRecords)
	healthRecords.Post("", handler.UpsertHealthRecord)
	healthRecords.Put("", handler.UpdateHealthRecord)
	healthRecords.Delete("", handler.DeleteHealthRecord)

	bloodData := api.Group("/blood-data", handler.AuthRequired, handler.PatientOnly)
	bloodData.Get("", handler.ListBloodData)
	bloodData.Post("", handler.CreateBloodData)
	bloodData.Put("", handler.UpdateBloodData)
	bloodData.Delete("", handler.DeleteBloodData)

	medical := api.Group("/medical", handler.AuthRequired, handler.MedicalOnly)
	medical.Get("/patients", handler.SearchPatients)
	medical.Get("/invites", handler.ListProviderInvites)
	medical.Post("/invites", handler.CreateInvite)
	medical.Get("/patient-data", handler.PatientData)
	medical.Post("/comments", handler.CreateRecordComment)
	medical.Post("/lab-comments", handler.CreateLabComment)

	patient := api.Group("/patient", handler.AuthRequired, handler.PatientOnly)
	patient.Get("/invites/respond", handler.ListPendingInvites)
	patient.Patch("/invites/respond", handler.RespondInvite)
	patient.Get("/comments", handler.ListPatientComments)

	api.Post("/family-invites", handler.AuthRequired, handler.PatientOnly, handler.CreateFamilyInvite)
	familyMembers := api.Group("/family-members", handler.AuthRequired)
	familyMembers.Get("", handler.ListFamilyMembers)
	familyMembers.Post("", handler.RedeemFamilyInvite)
	familyMembers.Patch("", handler.UpdateFamilyMember)
	api.Get("/family/patient-data", handler.AuthRequired, handler.FamilyPatientData)

	export := api.Group("/export", handler.AuthRequired, handler.PatientOnly)
	export.Get("/summary", handler.ExportSummary)
	export.Get("/csv", handler.ExportCSV)
	export.Get("/json", handler.ExportJSON)
	export.Post("/archive", handler.ArchiveExport)
}
