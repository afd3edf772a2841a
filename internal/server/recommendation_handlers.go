package server

import (
	"github.com/gofiber/fiber/v2"
)

// RecommendedTweets handles GET /api/recommendations/tweets.
func (s *Server) RecommendedTweets(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	page, limit := parsePageLimit(c)

	tweets, hasMore, err := s.recommendationService.RecommendedTweets(c.Context(), userID, page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return feedResponse(c, "tweets", tweets, page, limit, hasMore)
}

// RecommendedUsers handles GET /api/recommendations/users.
func (s *Server) RecommendedUsers(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	page, limit := parsePageLimit(c)

	users, hasMore, err := s.recommendationService.RecommendedUsers(c.Context(), userID, page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return feedResponse(c, "users", users, page, limit, hasMore)
}

// RecommendedCommunities handles GET /api/recommendations/communities.
func (s *Server) RecommendedCommunities(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)
	page, limit := parsePageLimit(c)

	communities, hasMore, err := s.recommendationService.RecommendedCommunities(c.Context(), userID, page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return feedResponse(c, "communities", communities, page, limit, hasMore)
}

// GetTrending handles GET /api/trending.
func (s *Server) GetTrending(c *fiber.Ctx) error {
	page, limit := parsePageLimit(c)

	tweets, hasMore, err := s.recommendationService.Trending(c.Context(), page, limit, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return feedResponse(c, "tweets", tweets, page, limit, hasMore)
}

// GetTrendingUsers handles GET /api/trending/users.
func (s *Server) GetTrendingUsers(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)

	users, err := s.recommendationService.TrendingUsers(c.Context(), limit, currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"users": users})
}

// GetTrendingHashtags handles GET /api/trending/hashtags.
func (s *Server) GetTrendingHashtags(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)
	timeframe := c.QueryInt("timeframe_hours", 24)

	tags, err := s.recommendationService.TrendingHashtags(c.Context(), limit, timeframe)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"hashtags": tags})
}
