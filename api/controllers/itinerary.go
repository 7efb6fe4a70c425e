package controllers

import (
	"net/http"

	"github.com/withmetravel/withme-backend/api/middleware"
	"github.com/withmetravel/withme-backend/api/responses"
	"github.com/withmetravel/withme-backend/api/validators"
	"github.com/withmetravel/withme-backend/internal/itinerary"
	"github.com/withmetravel/withme-backend/pkg/logger"
)

// ListItinerary is readable by anyone who can view the trip, including
// anonymous callers on public trips.
func ListItinerary(svc itinerary.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "itinerary")
			return
		}
		tripID, r, ok := tripParam(w, r, logg)
		if !ok {
			return
		}

		result, err := svc.List(r.Context(), tripID, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func CreateItineraryItem(svc itinerary.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "itinerary")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		tripID, r, ok := tripParam(w, r, logg)
		if !ok {
			return
		}

		var input itinerary.CreateItemInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.CreateItem(r.Context(), tripID, userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func UpdateItineraryItem(svc itinerary.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "itinerary")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		tripID, r, ok := tripParam(w, r, logg)
		if !ok {
			return
		}
		itemID, ok := uuidParam(w, r, logg, "itemId")
		if !ok {
			return
		}

		var input itinerary.UpdateItemInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.UpdateItem(r.Context(), tripID, itemID, userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func DeleteItineraryItem(svc itinerary.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "itinerary")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		tripID, r, ok := tripParam(w, r, logg)
		if !ok {
			return
		}
		itemID, ok := uuidParam(w, r, logg, "itemId")
		if !ok {
			return
		}

		if err := svc.DeleteItem(r.Context(), tripID, itemID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": true})
	}
}

func CreateItinerarySection(svc itinerary.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "itinerary")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		tripID, r, ok := tripParam(w, r, logg)
		if !ok {
			return
		}

		var input itinerary.CreateSectionInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		section, err := svc.CreateSection(r.Context(), tripID, userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, section)
	}
}

// ReorderItineraryItem moves one item; the response is the full reordered itinerary.
func ReorderItineraryItem(svc itinerary.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "itinerary")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		tripID, r, ok := tripParam(w, r, logg)
		if !ok {
			return
		}

		var input itinerary.ReorderItemInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ReorderItem(r.Context(), tripID, userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func ReorderItinerarySections(svc itinerary.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			serviceUnavailable(w, r, logg, "itinerary")
			return
		}
		userID, ok := requireCaller(w, r, logg)
		if !ok {
			return
		}
		tripID, r, ok := tripParam(w, r, logg)
		if !ok {
			return
		}

		var input itinerary.ReorderSectionsInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		sections, err := svc.ReorderSections(r.Context(), tripID, userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sections)
	}
}
