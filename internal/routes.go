package internal

import (
	"antislack/internal/controllers"
	"antislack/internal/providers"
	"net/http"
)

func InitRoutes(
	apiController *controllers.ApiController,
	lockController *controllers.LockController,
	statsController *controllers.StatsController,
	backupController *controllers.BackupController,
) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Get("/settings", http.HandlerFunc(apiController.GetSettings))
	routers.Put("/settings", http.HandlerFunc(apiController.UpdateSettings))
	routers.Post("/settings/enabled", http.HandlerFunc(apiController.SetEnabled))

	routers.Get("/sites", http.HandlerFunc(apiController.ListSites))
	routers.Post("/sites", http.HandlerFunc(apiController.AddSite))
	routers.Post("/sites/quick", http.HandlerFunc(apiController.QuickBlock))
	routers.Post("/sites/undo", http.HandlerFunc(apiController.Undo))
	routers.Put("/sites/{id}", http.HandlerFunc(apiController.UpdateSite))
	routers.Delete("/sites/{id}", http.HandlerFunc(apiController.RemoveSite))

	routers.Get("/blocked", http.HandlerFunc(apiController.BlockPage))
	routers.Post("/navigation/redirect", http.HandlerFunc(apiController.TrackRedirect))
	routers.Get("/rules", http.HandlerFunc(apiController.GetRules))
	routers.Get("/check", http.HandlerFunc(apiController.Check))

	routers.Get("/bypass", http.HandlerFunc(lockController.ListBypasses))
	routers.Post("/bypass", http.HandlerFunc(lockController.SolveChallenge))
	routers.Post("/bypass/challenge", http.HandlerFunc(lockController.RequestChallenge))
	routers.Delete("/bypass/{domain}", http.HandlerFunc(lockController.RemoveBypass))

	routers.Get("/nuclear", http.HandlerFunc(lockController.NuclearStatus))
	routers.Post("/nuclear", http.HandlerFunc(lockController.ActivateNuclear))
	routers.Post("/nuclear/abort", http.HandlerFunc(lockController.AbortNuclear))

	routers.Post("/passphrase", http.HandlerFunc(lockController.EnableLock))
	routers.Delete("/passphrase", http.HandlerFunc(lockController.DisableLock))
	routers.Post("/passphrase/change", http.HandlerFunc(lockController.ChangeLock))

	routers.Get("/stats", http.HandlerFunc(statsController.Dashboard))
	routers.Delete("/stats", http.HandlerFunc(statsController.Reset))
	routers.Get("/stats/archive", http.HandlerFunc(statsController.Archived))

	routers.Get("/export", http.HandlerFunc(backupController.Export))
	routers.Post("/import", http.HandlerFunc(backupController.Import))
	routers.Post("/backup", http.HandlerFunc(backupController.Upload))
	routers.Post("/backup/restore", http.HandlerFunc(backupController.Restore))
	return routers
}
