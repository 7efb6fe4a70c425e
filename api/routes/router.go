package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/withmetravel/withme-backend/api/controllers"
	"github.com/withmetravel/withme-backend/api/middleware"
	"github.com/withmetravel/withme-backend/internal/accessrequests"
	"github.com/withmetravel/withme-backend/internal/comments"
	"github.com/withmetravel/withme-backend/internal/friends"
	"github.com/withmetravel/withme-backend/internal/itinerary"
	"github.com/withmetravel/withme-backend/internal/members"
	"github.com/withmetravel/withme-backend/internal/notifications"
	"github.com/withmetravel/withme-backend/internal/permissions"
	"github.com/withmetravel/withme-backend/internal/profiles"
	"github.com/withmetravel/withme-backend/internal/ratelimit"
	"github.com/withmetravel/withme-backend/internal/trips"
	"github.com/withmetravel/withme-backend/internal/votes"
	"github.com/withmetravel/withme-backend/pkg/config"
	"github.com/withmetravel/withme-backend/pkg/logger"
	"github.com/withmetravel/withme-backend/pkg/metrics"
	"github.com/withmetravel/withme-backend/pkg/redis"
)

// Dependencies is everything the HTTP surface needs. Nil services answer 500
// from their handlers; nil infrastructure disables the matching middleware.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       *redis.Client
	RateLimiter ratelimit.Store
	Metrics     *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer

	Permissions    permissions.Checker
	Profiles       profiles.Service
	Trips          trips.Service
	Members        members.Service
	AccessRequests accessrequests.Service
	Friends        friends.Service
	Itinerary      itinerary.Service
	Votes          votes.Service
	Comments       comments.Service
	Notifications  notifications.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, deps.Metrics),
		middleware.CORS(cfg.CORS),
	)

	readiness := map[string]controllers.Pinger{"database": deps.DB}
	var idempotencyStore redis.IdempotencyStore
	if deps.Redis != nil {
		readiness["redis"] = deps.Redis
		idempotencyStore = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	requireUser := middleware.RequireUser(deps.Profiles, logg)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Session(cfg.Auth, logg))
		r.Use(middleware.RateLimit(deps.RateLimiter, cfg.RateLimit.NormalizedBackend(), deps.Metrics, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		// Readable by anonymous callers when the trip is public.
		r.Group(func(r chi.Router) {
			r.Get("/trips/{tripId}", controllers.GetTrip(deps.Trips, logg))
			r.Get("/trips/{tripId}/get-permissions", controllers.GetTripPermissions(deps.Permissions, logg))
			r.Get("/trips/{tripId}/itinerary", controllers.ListItinerary(deps.Itinerary, logg))
			r.Get("/trips/{tripId}/itinerary/{itemId}/votes", controllers.GetItemVotes(deps.Votes, logg))
			r.Get("/trips/{tripId}/polls/{pollId}", controllers.GetPoll(deps.Votes, logg))
			r.Post("/trips/{tripId}/vote", controllers.CastVote(deps.Votes, logg))
			r.Get("/comments", controllers.ListComments(deps.Comments, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Get("/profile", controllers.GetMe(deps.Profiles, logg))
			r.Patch("/profile", controllers.UpdateMe(deps.Profiles, logg))

			r.Post("/trips", controllers.CreateTrip(deps.Trips, logg))
			r.Get("/trips", controllers.ListTrips(deps.Trips, logg))
			r.Patch("/trips/{tripId}", controllers.UpdateTrip(deps.Trips, logg))
			r.Delete("/trips/{tripId}", controllers.DeleteTrip(deps.Trips, logg))

			r.Get("/trips/{tripId}/members", controllers.ListMembers(deps.Members, logg))
			r.Post("/trips/{tripId}/members", controllers.InviteMember(deps.Members, logg))
			r.Post("/trips/{tripId}/members/accept", controllers.AcceptInvite(deps.Members, logg))
			r.Patch("/trips/{tripId}/members/{userId}", controllers.UpdateMemberRole(deps.Members, logg))
			r.Delete("/trips/{tripId}/members/{userId}", controllers.RemoveMember(deps.Members, logg))

			r.Post("/trips/{tripId}/access-requests", controllers.RequestAccess(deps.AccessRequests, logg))
			r.Get("/trips/{tripId}/access-requests", controllers.ListAccessRequests(deps.AccessRequests, logg))
			r.Post("/trips/{tripId}/access-requests/{requestId}/respond", controllers.RespondAccessRequest(deps.AccessRequests, logg))

			r.Post("/trips/{tripId}/itinerary", controllers.CreateItineraryItem(deps.Itinerary, logg))
			r.Patch("/trips/{tripId}/itinerary/{itemId}", controllers.UpdateItineraryItem(deps.Itinerary, logg))
			r.Delete("/trips/{tripId}/itinerary/{itemId}", controllers.DeleteItineraryItem(deps.Itinerary, logg))
			r.Post("/trips/{tripId}/itinerary/reorder", controllers.ReorderItineraryItem(deps.Itinerary, logg))
			r.Post("/trips/{tripId}/itinerary/sections", controllers.CreateItinerarySection(deps.Itinerary, logg))
			r.Post("/trips/{tripId}/itinerary/sections/reorder", controllers.ReorderItinerarySections(deps.Itinerary, logg))

			r.Post("/trips/{tripId}/polls", controllers.CreatePoll(deps.Votes, logg))
			r.Post("/trips/{tripId}/polls/{pollId}/vote", controllers.VotePollOption(deps.Votes, logg))

			r.Get("/friends", controllers.ListFriends(deps.Friends, logg))
			r.Get("/friends/requests", controllers.ListFriendRequests(deps.Friends, logg))
			r.Post("/friends/request", controllers.SendFriendRequest(deps.Friends, logg))
			r.Post("/friends/respond", controllers.RespondFriendRequest(deps.Friends, logg))
			r.Delete("/friends/{userId}", controllers.Unfriend(deps.Friends, logg))

			r.Post("/comments", controllers.CreateComment(deps.Comments, logg))
			r.Patch("/comments/{commentId}", controllers.UpdateComment(deps.Comments, logg))
			r.Delete("/comments/{commentId}", controllers.DeleteComment(deps.Comments, logg))
			r.Post("/comments/{commentId}/reactions", controllers.ToggleCommentReaction(deps.Comments, logg))

			r.Get("/notifications", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/notifications/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Post("/notifications/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))

			r.With(middleware.RequireSystemAdmin(logg)).Post("/admin/fix-roles", controllers.FixRoles(deps.Members, logg))
		})
	})

	return r
}
