package service

import (
	"github.com/Will-hxw/1688/internal/domain/entity"
)

// ActorMayTransition is the per-edge authorization policy for the order state
// graph. It assumes the edge itself is valid (entity.CanTransition) and only
// answers who may walk it:
//
//	CREATED  -> SHIPPED   seller
//	CREATED  -> CANCELED  buyer or seller
//	SHIPPED  -> RECEIVED  buyer
//	SHIPPED  -> CANCELED  buyer or seller
//	RECEIVED -> REVIEWED  nobody directly; only the review flow walks it
//
// Admin override does not go through this policy (see OrderService.ForceStatus)
// but is still bound by the graph.
func ActorMayTransition(actor entity.Actor, order *entity.Order, to entity.OrderStatus) bool {
	isBuyer := actor.ID == order.BuyerID
	isSeller := actor.ID == order.SellerID

	switch to {
	case entity.StatusShipped:
		return isSeller
	case entity.StatusReceived:
		return isBuyer
	case entity.StatusCanceled:
		return isBuyer || isSeller
	}
	return false
}

// cancelAttribution records which side of the order the canceling actor was on.
func cancelAttribution(actor entity.Actor, order *entity.Order) entity.CanceledBy {
	switch {
	case actor.IsAdmin() && actor.ID != order.BuyerID && actor.ID != order.SellerID:
		return entity.CanceledByAdmin
	case actor.ID == order.SellerID:
		return entity.CanceledBySeller
	default:
		return entity.CanceledByBuyer
	}
}
