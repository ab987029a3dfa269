// internal/services/review_service_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/ecobazar/marketplace-backend/internal/errs"
	"github.com/ecobazar/marketplace-backend/internal/models"
	"github.com/ecobazar/marketplace-backend/internal/utils"
)

type ReviewServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *ReviewService

	buyer   *models.User
	seller  *models.User
	admin   *models.User
	product *models.Product
	order   *models.Order

	adminAct Actor
	buyerAct Actor
}

func (suite *ReviewServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	suite.service = NewReviewService(suite.db, testPolicy(), nil)

	suite.buyer = createTestUser(suite.T(), suite.db, models.UserRoleBuyer)
	suite.seller = createTestUser(suite.T(), suite.db, models.UserRoleSeller)
	suite.admin = createTestUser(suite.T(), suite.db, models.UserRoleAdmin)
	suite.product = createTestProduct(suite.T(), suite.db, suite.seller.ID, 9.99, 10)
	suite.order = createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusDelivered, suite.product.ID)

	suite.adminAct = Actor{ID: suite.admin.ID, Role: models.UserRoleAdmin}
	suite.buyerAct = Actor{ID: suite.buyer.ID, Role: models.UserRoleBuyer}
}

func (suite *ReviewServiceTestSuite) submitRequest() *SubmitReviewRequest {
	return &SubmitReviewRequest{
		ProductID: suite.product.ID,
		OrderID:   suite.order.ID,
		Rating:    4,
		Title:     "Fresh and tasty",
		Content:   "Arrived in great condition.",
	}
}

func (suite *ReviewServiceTestSuite) TestSubmitReview() {
	review, err := suite.service.SubmitReview(suite.buyer.ID, suite.submitRequest())
	suite.Require().NoError(err)

	suite.Equal(models.ModerationStatusPending, review.Status)
	suite.True(review.IsVerified)
	suite.Equal(int64(0), review.HelpfulCount)
	suite.Equal(int64(0), review.NotHelpfulCount)
}

func (suite *ReviewServiceTestSuite) TestSubmitReviewUnknownOrder() {
	req := suite.submitRequest()
	req.OrderID = uuid.New()

	_, err := suite.service.SubmitReview(suite.buyer.ID, req)
	suite.True(errs.IsKind(err, errs.KindNotFound))
}

func (suite *ReviewServiceTestSuite) TestSubmitReviewWrongOwner() {
	stranger := createTestUser(suite.T(), suite.db, models.UserRoleBuyer)

	_, err := suite.service.SubmitReview(stranger.ID, suite.submitRequest())
	suite.True(errs.IsKind(err, errs.KindForbidden))
}

func (suite *ReviewServiceTestSuite) TestSubmitReviewWrongOwnerBeatsUndeliveredOrder() {
	// Ownership is checked before delivery, so a stranger probing an
	// undelivered order still sees Forbidden.
	undelivered := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusShipped, suite.product.ID)
	stranger := createTestUser(suite.T(), suite.db, models.UserRoleBuyer)

	req := suite.submitRequest()
	req.OrderID = undelivered.ID
	_, err := suite.service.SubmitReview(stranger.ID, req)
	suite.True(errs.IsKind(err, errs.KindForbidden))
}

func (suite *ReviewServiceTestSuite) TestSubmitReviewProductNotInOrder() {
	other := createTestProduct(suite.T(), suite.db, suite.seller.ID, 3.50, 5)

	req := suite.submitRequest()
	req.ProductID = other.ID
	_, err := suite.service.SubmitReview(suite.buyer.ID, req)
	suite.True(errs.IsKind(err, errs.KindNotFound))
}

func (suite *ReviewServiceTestSuite) TestSubmitReviewOrderNotDelivered() {
	shipped := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusShipped, suite.product.ID)

	req := suite.submitRequest()
	req.OrderID = shipped.ID
	_, err := suite.service.SubmitReview(suite.buyer.ID, req)
	suite.True(errs.IsKind(err, errs.KindPreconditionFailed))
}

func (suite *ReviewServiceTestSuite) TestSubmitReviewRatingBounds() {
	for _, rating := range []int{0, -1, 6, 100} {
		req := suite.submitRequest()
		req.Rating = rating
		_, err := suite.service.SubmitReview(suite.buyer.ID, req)
		suite.True(errs.IsKind(err, errs.KindValidation), "rating %d", rating)
	}

	// Boundary ratings are accepted; use separate orders to avoid the
	// one-review-per-purchase rule.
	req := suite.submitRequest()
	req.Rating = 1
	_, err := suite.service.SubmitReview(suite.buyer.ID, req)
	suite.Require().NoError(err)

	second := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusDelivered, suite.product.ID)
	req = suite.submitRequest()
	req.OrderID = second.ID
	req.Rating = 5
	_, err = suite.service.SubmitReview(suite.buyer.ID, req)
	suite.Require().NoError(err)
}

func (suite *ReviewServiceTestSuite) TestSubmitReviewDuplicate() {
	_, err := suite.service.SubmitReview(suite.buyer.ID, suite.submitRequest())
	suite.Require().NoError(err)

	_, err = suite.service.SubmitReview(suite.buyer.ID, suite.submitRequest())
	suite.True(errs.IsKind(err, errs.KindPreconditionFailed))
}

func (suite *ReviewServiceTestSuite) TestModerate() {
	review, err := suite.service.SubmitReview(suite.buyer.ID, suite.submitRequest())
	suite.Require().NoError(err)

	moderated, err := suite.service.Moderate(review.ID, &ModerateReviewRequest{
		Status: models.ModerationStatusApproved,
	}, suite.adminAct)
	suite.Require().NoError(err)
	suite.Equal(models.ModerationStatusApproved, moderated.Status)

	// Approval refreshes the product aggregate.
	var product models.Product
	suite.Require().NoError(suite.db.First(&product, "id = ?", suite.product.ID).Error)
	suite.Equal(int64(1), product.ReviewCount)
	suite.InDelta(4.0, product.Rating, 0.001)

	// Moderation is corrective: approved can move straight to rejected,
	// and the aggregate follows.
	moderated, err = suite.service.Moderate(review.ID, &ModerateReviewRequest{
		Status: models.ModerationStatusRejected,
		Notes:  "off-topic",
	}, suite.adminAct)
	suite.Require().NoError(err)
	suite.Equal(models.ModerationStatusRejected, moderated.Status)
	suite.Equal("off-topic", moderated.ModeratorNotes)

	suite.Require().NoError(suite.db.First(&product, "id = ?", suite.product.ID).Error)
	suite.Equal(int64(0), product.ReviewCount)
}

func (suite *ReviewServiceTestSuite) TestModerateRequiresModerator() {
	review, err := suite.service.SubmitReview(suite.buyer.ID, suite.submitRequest())
	suite.Require().NoError(err)

	_, err = suite.service.Moderate(review.ID, &ModerateReviewRequest{
		Status: models.ModerationStatusApproved,
	}, suite.buyerAct)
	suite.True(errs.IsKind(err, errs.KindForbidden))

	// Sellers operate orders but do not moderate reviews.
	_, err = suite.service.Moderate(review.ID, &ModerateReviewRequest{
		Status: models.ModerationStatusApproved,
	}, Actor{ID: suite.seller.ID, Role: models.UserRoleSeller})
	suite.True(errs.IsKind(err, errs.KindForbidden))
}

func (suite *ReviewServiceTestSuite) TestModerateUnknownStatus() {
	review, err := suite.service.SubmitReview(suite.buyer.ID, suite.submitRequest())
	suite.Require().NoError(err)

	_, err = suite.service.Moderate(review.ID, &ModerateReviewRequest{
		Status: models.ModerationStatus("flagged"),
	}, suite.adminAct)
	suite.True(errs.IsKind(err, errs.KindValidation))
}

func (suite *ReviewServiceTestSuite) TestMarkHelpfulCountsEveryVote() {
	review, err := suite.service.SubmitReview(suite.buyer.ID, suite.submitRequest())
	suite.Require().NoError(err)

	// Votes are plain counters: the same caller voting twice counts
	// twice.
	suite.Require().NoError(suite.service.MarkHelpful(review.ID, true, suite.buyerAct))
	suite.Require().NoError(suite.service.MarkHelpful(review.ID, true, suite.buyerAct))
	suite.Require().NoError(suite.service.MarkHelpful(review.ID, false, suite.buyerAct))

	var stored models.Review
	suite.Require().NoError(suite.db.First(&stored, "id = ?", review.ID).Error)
	suite.Equal(int64(2), stored.HelpfulCount)
	suite.Equal(int64(1), stored.NotHelpfulCount)
}

func (suite *ReviewServiceTestSuite) TestMarkHelpfulUnknownReview() {
	err := suite.service.MarkHelpful(uuid.New(), true, suite.buyerAct)
	suite.True(errs.IsKind(err, errs.KindNotFound))
}

func (suite *ReviewServiceTestSuite) TestStatisticsEmpty() {
	stats, err := suite.service.Statistics(suite.product.ID)
	suite.Require().NoError(err)

	suite.Equal(int64(0), stats.ApprovedCount)
	suite.Equal(0.0, stats.AverageRating)
	for r := 1; r <= 5; r++ {
		suite.Equal(int64(0), stats.Distribution[r])
	}
}

func (suite *ReviewServiceTestSuite) TestStatisticsCountsApprovedOnly() {
	ratings := []int{5, 3, 3}
	for _, rating := range ratings {
		order := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusDelivered, suite.product.ID)
		req := suite.submitRequest()
		req.OrderID = order.ID
		req.Rating = rating
		review, err := suite.service.SubmitReview(suite.buyer.ID, req)
		suite.Require().NoError(err)

		_, err = suite.service.Moderate(review.ID, &ModerateReviewRequest{
			Status: models.ModerationStatusApproved,
		}, suite.adminAct)
		suite.Require().NoError(err)
	}

	// A pending review must not influence the numbers.
	pendingOrder := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusDelivered, suite.product.ID)
	req := suite.submitRequest()
	req.OrderID = pendingOrder.ID
	req.Rating = 1
	_, err := suite.service.SubmitReview(suite.buyer.ID, req)
	suite.Require().NoError(err)

	stats, err := suite.service.Statistics(suite.product.ID)
	suite.Require().NoError(err)

	suite.Equal(int64(3), stats.ApprovedCount)
	suite.InDelta(11.0/3.0, stats.AverageRating, 0.001)
	suite.Equal(int64(1), stats.Distribution[5])
	suite.Equal(int64(2), stats.Distribution[3])
	suite.Equal(int64(0), stats.Distribution[1])
}

func (suite *ReviewServiceTestSuite) TestListForProductOnlyApproved() {
	review, err := suite.service.SubmitReview(suite.buyer.ID, suite.submitRequest())
	suite.Require().NoError(err)

	reviews, total, err := suite.service.ListForProduct(suite.product.ID, utils.PaginationParams{Page: 1, Limit: 20, Order: "desc"})
	suite.Require().NoError(err)
	suite.Equal(int64(0), total)
	suite.Empty(reviews)

	_, err = suite.service.Moderate(review.ID, &ModerateReviewRequest{
		Status: models.ModerationStatusApproved,
	}, suite.adminAct)
	suite.Require().NoError(err)

	reviews, total, err = suite.service.ListForProduct(suite.product.ID, utils.PaginationParams{Page: 1, Limit: 20, Order: "desc"})
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Len(reviews, 1)
}

func (suite *ReviewServiceTestSuite) TestListPendingRequiresModerator() {
	_, _, err := suite.service.ListPending(utils.PaginationParams{Page: 1, Limit: 20, Order: "desc"}, suite.buyerAct)
	suite.True(errs.IsKind(err, errs.KindForbidden))

	_, total, err := suite.service.ListPending(utils.PaginationParams{Page: 1, Limit: 20, Order: "desc"}, suite.adminAct)
	suite.Require().NoError(err)
	suite.Equal(int64(0), total)
}

func TestReviewServiceSuite(t *testing.T) {
	suite.Run(t, new(ReviewServiceTestSuite))
}
