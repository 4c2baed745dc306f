package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"realtyhub/internal/middleware"
	"realtyhub/internal/rbac"
	"realtyhub/internal/service"
)

// GetTestimonials serves one entry by id or a page of them. Unapproved
// entries are visible only to callers allowed to moderate, and in lists only
// when they ask with approvedOnly=false.
func (h *HandlerSet) GetTestimonials(c *gin.Context) {
	moderator := false
	if p, ok := middleware.PrincipalFrom(c); ok && p.Allows(rbac.SettingsEdit) {
		moderator = true
	}

	if id := resourceID(c); id != "" {
		t, err := h.svc.Testimonials.Get(c.Request.Context(), id, moderator)
		if err != nil {
			h.fail(c, "testimonials.get", err)
			return
		}
		respondData(c, http.StatusOK, newTestimonialDTO(t))
		return
	}

	includeUnapproved := false
	if approvedOnly, ok := queryBool(c, "approvedOnly"); ok && !approvedOnly {
		includeUnapproved = moderator
	}
	page := pageFrom(c, service.TestimonialPageLimit)
	items, total, err := h.svc.Testimonials.List(c.Request.Context(), includeUnapproved, page)
	if err != nil {
		h.fail(c, "testimonials.list", err)
		return
	}
	respondPage(c, mapSlice(items, newTestimonialDTO), page, total)
}

func (h *HandlerSet) SubmitTestimonial(c *gin.Context) {
	var input service.TestimonialInput
	if !h.bindJSON(c, "testimonials.submit", &input) {
		return
	}
	t, err := h.svc.Testimonials.Submit(c.Request.Context(), input)
	if err != nil {
		h.fail(c, "testimonials.submit", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "testimonial submitted for approval", "data": newTestimonialDTO(t)})
}

func (h *HandlerSet) UpdateTestimonial(c *gin.Context) {
	id, ok := h.requireID(c, "testimonials.update")
	if !ok {
		return
	}
	var patch service.TestimonialPatch
	if !h.bindJSON(c, "testimonials.update", &patch) {
		return
	}
	actor, _ := middleware.PrincipalFrom(c)
	t, err := h.svc.Testimonials.Update(c.Request.Context(), actor, id, patch)
	if err != nil {
		h.fail(c, "testimonials.update", err)
		return
	}
	respondData(c, http.StatusOK, newTestimonialDTO(t))
}

func (h *HandlerSet) DeleteTestimonial(c *gin.Context) {
	id, ok := h.requireID(c, "testimonials.delete")
	if !ok {
		return
	}
	if err := h.svc.Testimonials.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "testimonials.delete", err)
		return
	}
	respondMessage(c, http.StatusOK, "testimonial deleted")
}
