package handlers

import (
	"net/http"
)

// recommendedUsers lists onboarded users the caller is not yet friends with.
func (a *API) recommendedUsers(w http.ResponseWriter, r *http.Request) {
	users, err := a.Social.ListRecommended(r.Context(), currentUser(r).ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Recommended users fetched successfully",
		"data":    users,
	})
}

func (a *API) myFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := a.Social.ListFriends(r.Context(), currentUser(r).ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Friends fetched successfully",
		"data":    friends,
	})
}

// sendFriendRequest sends a request from the caller to the user in the path.
func (a *API) sendFriendRequest(w http.ResponseWriter, r *http.Request) {
	recipientID, err := pathID(r, "user")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	fr, err := a.Social.SendRequest(r.Context(), currentUser(r).ID, recipientID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusCreated, envelope{
		"success": true,
		"message": "Friend request sent successfully",
		"data":    fr,
	})
}

// acceptFriendRequest accepts the request in the path; only its recipient may do so.
func (a *API) acceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	requestID, err := pathID(r, "request")
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	if _, err := a.Social.AcceptRequest(r.Context(), currentUser(r).ID, requestID); err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Friend request accepted"})
}

// friendRequests returns pending incoming requests and the caller's accepted outgoing ones.
func (a *API) friendRequests(w http.ResponseWriter, r *http.Request) {
	overview, err := a.Social.FriendRequests(r.Context(), currentUser(r).ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Friend requests fetched successfully",
		"data":    overview,
	})
}

func (a *API) outgoingFriendRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := a.Social.ListOutgoingPending(r.Context(), currentUser(r).ID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Outgoing friend requests fetched successfully",
		"data":    reqs,
	})
}
