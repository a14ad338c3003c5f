package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/hireloop/slotd/internal/model"
	"github.com/hireloop/slotd/internal/repo"
	"github.com/hireloop/slotd/pkg/errors"
)

func (s *server) handleAvailability(c *fiber.Ctx, tenantID string) error {
	userIDs, err := s.getUsersOrErr(c)
	if err != nil {
		return s.sendError(c, http.StatusBadRequest, err.Error())
	}

	within, err := s.getRangeOrErr(c)
	if err != nil {
		return s.sendError(c, http.StatusBadRequest, err.Error())
	}

	res, err := s.avail.FreeIntervals(c.Context(), tenantID, userIDs, within)
	if err != nil {
		return s.sendFault(c, err)
	}

	body := map[string]any{
		"free":            res.Free,
		"partial":         res.Partial,
		"stale_providers": res.StaleProviders,
	}

	// with a duration the common windows across all users are computed too
	if durationStr := c.Query("duration", ""); durationStr != "" {
		duration, err := strconv.ParseInt(durationStr, 10, 64)
		if err != nil {
			return s.sendError(c, http.StatusBadRequest, "bad \"duration\" param")
		}

		windows, _, err := s.avail.Intersection(c.Context(), tenantID, userIDs, within, duration)
		if err != nil {
			return s.sendFault(c, err)
		}
		body["intersection"] = windows
	}

	return c.Status(http.StatusOK).JSON(body)
}

func (s *server) handleSuggestions(c *fiber.Ctx, tenantID string) error {
	userIDs, err := s.getUsersOrErr(c)
	if err != nil {
		return s.sendError(c, http.StatusBadRequest, err.Error())
	}

	duration, err := strconv.ParseInt(c.Query("duration", ""), 10, 64)
	if err != nil {
		return s.sendError(c, http.StatusBadRequest, "bad \"duration\" param")
	}

	deadlineMs, err := strconv.ParseInt(c.Query("deadline", ""), 10, 64)
	if err != nil {
		return s.sendError(c, http.StatusBadRequest, "bad \"deadline\" param")
	}

	limit := c.QueryInt("limit", 0)

	suggestions, partial, err := s.ranker.Suggest(
		c.Context(), tenantID, userIDs, duration, time.UnixMilli(deadlineMs), limit,
	)
	if err != nil {
		return s.sendFault(c, err)
	}

	return c.Status(http.StatusOK).JSON(map[string]any{
		"suggestions": suggestions,
		"partial":     partial,
	})
}

func (s *server) handleCreateSlot(c *fiber.Ctx, tenantID string) error {
	var req struct {
		Interval     model.Interval `json:"interval"`
		Participants []string       `json:"participants"`
	}
	err := c.BodyParser(&req)
	if err != nil {
		s.log.Warn(errors.WrapFail(err, "unmarshal create slot payload"))
		return s.sendError(c, http.StatusBadRequest, "bad json")
	}

	slot, err := s.manager.CreateSlot(c.Context(), tenantID, s.actor(c), req.Interval, req.Participants)
	if err != nil {
		return s.sendFault(c, err)
	}

	return c.Status(http.StatusCreated).JSON(slot)
}

func (s *server) handleGenerateSlots(c *fiber.Ctx, tenantID string) error {
	var req struct {
		Range           model.Interval `json:"range"`
		DurationMinutes int64          `json:"duration_minutes"`
		StrideMinutes   int64          `json:"stride_minutes"`
		Participants    []string       `json:"participants"`
	}
	err := c.BodyParser(&req)
	if err != nil {
		s.log.Warn(errors.WrapFail(err, "unmarshal generate payload"))
		return s.sendError(c, http.StatusBadRequest, "bad json")
	}

	created, skipped, err := s.manager.GenerateSlots(
		c.Context(), tenantID, s.actor(c), req.Range, req.DurationMinutes, req.Participants, req.StrideMinutes,
	)
	if err != nil {
		return s.sendFault(c, err)
	}

	return c.Status(http.StatusCreated).JSON(map[string]int{
		"created": created,
		"skipped": skipped,
	})
}

func (s *server) handleListSlots(c *fiber.Ctx, tenantID string) error {
	var q repo.SlotQuery

	if c.Query("from", "") != "" || c.Query("to", "") != "" {
		within, err := s.getRangeOrErr(c)
		if err != nil {
			return s.sendError(c, http.StatusBadRequest, err.Error())
		}
		q.Within = &within
	}

	if statusStr := c.Query("status", ""); statusStr != "" {
		status, ok := parseStatus(statusStr)
		if !ok {
			return s.sendError(c, http.StatusBadRequest, "bad \"status\" param")
		}
		q.Status = &status
	}

	q.Participant = c.Query("participant", "")

	slots, err := s.manager.List(c.Context(), tenantID, q)
	if err != nil {
		return s.sendFault(c, err)
	}

	return c.Status(http.StatusOK).JSON(map[string]any{"slots": slots})
}

func (s *server) handleGetSlot(c *fiber.Ctx, tenantID string) error {
	slot, err := s.manager.Get(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return s.sendFault(c, err)
	}
	return c.Status(http.StatusOK).JSON(slot)
}

func (s *server) handleBookSlot(c *fiber.Ctx, tenantID string) error {
	var req struct {
		CandidateID string `json:"candidate_id"`
	}
	err := c.BodyParser(&req)
	if err != nil {
		s.log.Warn(errors.WrapFail(err, "unmarshal book payload"))
		return s.sendError(c, http.StatusBadRequest, "bad json")
	}

	slot, err := s.manager.BookSlot(c.Context(), tenantID, c.Params("id"), s.actor(c), req.CandidateID)
	if err != nil {
		return s.sendFault(c, err)
	}

	return c.Status(http.StatusOK).JSON(slot)
}

func (s *server) handleRescheduleSlot(c *fiber.Ctx, tenantID string) error {
	var req struct {
		Interval model.Interval `json:"interval"`
	}
	err := c.BodyParser(&req)
	if err != nil {
		s.log.Warn(errors.WrapFail(err, "unmarshal reschedule payload"))
		return s.sendError(c, http.StatusBadRequest, "bad json")
	}

	slot, err := s.manager.RescheduleSlot(c.Context(), tenantID, c.Params("id"), s.actor(c), req.Interval)
	if err != nil {
		return s.sendFault(c, err)
	}

	return c.Status(http.StatusOK).JSON(slot)
}

func (s *server) handleCancelSlot(c *fiber.Ctx, tenantID string) error {
	err := s.manager.CancelSlot(c.Context(), tenantID, c.Params("id"), s.actor(c))
	if err != nil {
		return s.sendFault(c, err)
	}
	return c.Status(http.StatusOK).Send(nil)
}

func (s *server) handleGetHours(c *fiber.Ctx, tenantID string) error {
	hours, err := s.repo.WorkingHours().Get(c.Context(), tenantID, c.Params("id"))
	if err != nil {
		return errors.WrapFail(err, "get working hours")
	}
	if hours == nil {
		return s.sendError(c, http.StatusNotFound, "no working hours configured")
	}
	return c.Status(http.StatusOK).JSON(hours)
}

func (s *server) handleSetHours(c *fiber.Ctx, tenantID string) error {
	var hours model.WorkingHours
	err := c.BodyParser(&hours)
	if err != nil {
		s.log.Warn(errors.WrapFail(err, "unmarshal working hours payload"))
		return s.sendError(c, http.StatusBadRequest, "bad json")
	}

	hours.TenantID = tenantID
	hours.UserID = c.Params("id")

	err = hours.Validate()
	if err != nil {
		return s.sendError(c, http.StatusBadRequest, err.Error())
	}

	err = s.repo.WorkingHours().Set(c.Context(), hours)
	if err != nil {
		return errors.WrapFail(err, "set working hours")
	}

	return c.Status(http.StatusOK).Send(nil)
}

func (s *server) handleListBusy(c *fiber.Ctx, tenantID string) error {
	within, err := s.getRangeOrErr(c)
	if err != nil {
		return s.sendError(c, http.StatusBadRequest, err.Error())
	}

	blocks, err := s.repo.BusyBlocks().List(c.Context(), tenantID, c.Params("id"), within)
	if err != nil {
		return errors.WrapFail(err, "list busy blocks")
	}

	return c.Status(http.StatusOK).JSON(map[string]any{"blocks": blocks})
}

func (s *server) handleAddBusy(c *fiber.Ctx, tenantID string) error {
	var req struct {
		Interval model.Interval `json:"interval"`
	}
	err := c.BodyParser(&req)
	if err != nil {
		s.log.Warn(errors.WrapFail(err, "unmarshal busy block payload"))
		return s.sendError(c, http.StatusBadRequest, "bad json")
	}

	if !req.Interval.Valid() {
		return s.sendError(c, http.StatusBadRequest, "interval end must be after start")
	}

	id, err := s.repo.BusyBlocks().Insert(c.Context(), model.BusyBlock{
		TenantID: tenantID,
		UserID:   c.Params("id"),
		Interval: req.Interval,
		Source:   model.SourceManual,
	})
	if err != nil {
		return errors.WrapFail(err, "insert busy block")
	}

	return c.Status(http.StatusCreated).JSON(map[string]string{"id": id})
}

func (s *server) handleDeleteBusy(c *fiber.Ctx, tenantID string) error {
	id := c.Query("id", "")
	if id == "" {
		return s.sendError(c, http.StatusBadRequest, "missing required parameter \"id\"")
	}

	deleted, err := s.repo.BusyBlocks().Delete(c.Context(), tenantID, id)
	if err != nil {
		return errors.WrapFail(err, "delete busy block")
	}
	if !deleted {
		return s.sendError(c, http.StatusNotFound, "no such busy block")
	}

	return c.Status(http.StatusOK).Send(nil)
}

func (s *server) handleGetRules(c *fiber.Ctx, tenantID string) error {
	rule, err := s.repo.Rules().Get(c.Context(), tenantID)
	if err != nil {
		return errors.WrapFail(err, "get scheduling rule")
	}
	if rule == nil {
		return s.sendError(c, http.StatusNotFound, "no scheduling rule configured")
	}
	return c.Status(http.StatusOK).JSON(rule)
}

func (s *server) handleSetRules(c *fiber.Ctx, tenantID string) error {
	var rule model.SchedulingRule
	err := c.BodyParser(&rule)
	if err != nil {
		s.log.Warn(errors.WrapFail(err, "unmarshal rule payload"))
		return s.sendError(c, http.StatusBadRequest, "bad json")
	}

	rule.TenantID = tenantID

	err = validateRule(rule)
	if err != nil {
		return s.sendError(c, http.StatusBadRequest, err.Error())
	}

	err = s.repo.Rules().Upsert(c.Context(), rule)
	if err != nil {
		return errors.WrapFail(err, "upsert scheduling rule")
	}

	return c.Status(http.StatusOK).Send(nil)
}

func (s *server) handleDeleteRules(c *fiber.Ctx, tenantID string) error {
	deleted, err := s.repo.Rules().Delete(c.Context(), tenantID)
	if err != nil {
		return errors.WrapFail(err, "delete scheduling rule")
	}
	if !deleted {
		return s.sendError(c, http.StatusNotFound, "no scheduling rule configured")
	}
	return c.Status(http.StatusOK).Send(nil)
}

func (s *server) actor(c *fiber.Ctx) string {
	return c.Get("X-Actor-ID", "")
}

func (s *server) getUsersOrErr(c *fiber.Ctx) ([]string, error) {
	raw := c.Query("users", "")
	if raw == "" {
		return nil, errors.Error("got empty \"users\" param")
	}

	userIDs := strings.Split(raw, ",")
	for _, id := range userIDs {
		if id == "" {
			return nil, errors.Error("got malformed \"users\" %q", raw)
		}
	}
	return userIDs, nil
}

func (s *server) getRangeOrErr(c *fiber.Ctx) (model.Interval, error) {
	from, err := strconv.ParseInt(c.Query("from", ""), 10, 64)
	if err != nil {
		return model.Interval{}, errors.Error("bad \"from\" param")
	}

	to, err := strconv.ParseInt(c.Query("to", ""), 10, 64)
	if err != nil {
		return model.Interval{}, errors.Error("bad \"to\" param")
	}

	within := model.Interval{from, to}
	if !within.Valid() {
		return model.Interval{}, errors.Error("\"to\" must be after \"from\"")
	}
	return within, nil
}

func validateRule(rule model.SchedulingRule) error {
	for name, v := range map[string]*int64{
		"min_notice_minutes":    rule.MinNoticeMinutes,
		"buffer_before_minutes": rule.BufferBeforeMinutes,
		"buffer_after_minutes":  rule.BufferAfterMinutes,
	} {
		if v != nil && *v < 0 {
			return errors.Error("%s must be non-negative", name)
		}
	}

	if rule.MaxInterviewsPerDayPerUser != nil && *rule.MaxInterviewsPerDayPerUser < 1 {
		return errors.Error("max_interviews_per_day_per_user must be positive")
	}

	for _, blackout := range rule.BlackoutPeriods {
		if !blackout.Valid() {
			return errors.Error("blackout period end must be after start")
		}
	}

	for _, day := range rule.AllowedDaysOfWeek {
		if day < 0 || day > 6 {
			return errors.Error("allowed day %d out of range", day)
		}
	}

	return nil
}

func parseStatus(s string) (model.SlotStatus, bool) {
	for _, status := range []model.SlotStatus{
		model.SlotAvailable, model.SlotBooked, model.SlotCancelled,
		model.SlotRescheduled, model.SlotCompleted,
	} {
		if strings.EqualFold(s, status.String()) {
			return status, true
		}
	}
	return 0, false
}
