package server

import (
	"chirp/internal/models"
	"chirp/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateTweet handles POST /api/tweets.
func (s *Server) CreateTweet(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	var req struct {
		Content     string `json:"content"`
		ImageURLs   string `json:"image_urls"`
		CommunityID *uint  `json:"community_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	tweet, err := s.tweetService.CreateTweet(c.Context(), service.CreateTweetInput{
		UserID:      userID,
		Content:     req.Content,
		ImageURLs:   req.ImageURLs,
		CommunityID: req.CommunityID,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(tweet)
}

// GetTweet handles GET /api/tweets/:id.
func (s *Server) GetTweet(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	tweet, err := s.tweetService.GetTweet(c.Context(), id, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tweet)
}

// DeleteTweet handles DELETE /api/tweets/:id.
func (s *Server) DeleteTweet(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.tweetService.DeleteTweet(c.Context(), userID, id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleLike handles POST /api/tweets/:id/like.
func (s *Server) ToggleLike(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	tweet, err := s.tweetService.ToggleLike(c.Context(), userID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tweet)
}

// Retweet handles POST /api/tweets/:id/retweet.
func (s *Server) Retweet(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	retweet, err := s.tweetService.Retweet(c.Context(), userID, id)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(retweet)
}

// UnRetweet handles DELETE /api/tweets/:id/retweet.
func (s *Server) UnRetweet(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.tweetService.UnRetweet(c.Context(), userID, id); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ReplyToTweet handles POST /api/tweets/:id/reply.
func (s *Server) ReplyToTweet(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	reply, err := s.tweetService.ReplyToTweet(c.Context(), service.ReplyInput{
		UserID:  userID,
		TweetID: id,
		Content: req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(reply)
}

// QuoteTweet handles POST /api/tweets/:id/quote.
func (s *Server) QuoteTweet(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	quote, err := s.tweetService.QuoteTweet(c.Context(), service.QuoteInput{
		UserID:  userID,
		TweetID: id,
		Content: req.Content,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(quote)
}

// GetFeed handles GET /api/feed. Authenticated callers get their home
// timeline; anonymous callers get the trending-and-verified feed.
func (s *Server) GetFeed(c *fiber.Ctx) error {
	page, limit := parsePageLimit(c)
	userID := currentUserID(c)

	if userID == 0 {
		tweets, hasMore, err := s.recommendationService.AnonymousFeed(c.Context(), page, limit)
		if err != nil {
			return respondError(c, err)
		}
		return feedResponse(c, "tweets", tweets, page, limit, hasMore)
	}

	tweets, hasMore, err := s.tweetService.Timeline(c.Context(), service.TimelineInput{
		UserID: userID,
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		return respondError(c, err)
	}
	return feedResponse(c, "tweets", tweets, page, limit, hasMore)
}

// GetUserTweets handles GET /api/users/:id/tweets.
func (s *Server) GetUserTweets(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c, defaultPageLimit)

	tweets, err := s.tweetService.GetUserTweets(c.Context(), id, p.Limit, p.Offset, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"tweets": tweets})
}
