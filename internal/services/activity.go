package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx/types"
	"github.com/sirupsen/logrus"

	"circles-service/internal/models"
	"circles-service/internal/observability"
	"circles-service/internal/repositories"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Feed filters accepted by the activity queries.
const (
	FilterAll       = "all"
	FilterRatings   = "ratings"
	FilterWatchlist = "watchlist"
	FilterComments  = "comments"
)

var filterTypes = map[string][]models.ActivityType{
	FilterAll:       nil,
	FilterRatings:   {models.ActivityMovieRated, models.ActivityRatingUpdated},
	FilterWatchlist: {models.ActivityWatchlistAdded, models.ActivityMovieAdded},
	FilterComments:  {models.ActivityCommentAdded},
}

// ActivityRecorder appends activity records. It never fails the caller.
type ActivityRecorder interface {
	Record(ctx context.Context, entry ActivityEntry) bool
}

// ActivityBroadcaster pushes freshly recorded activity to live subscribers.
type ActivityBroadcaster interface {
	BroadcastActivity(groupID int, item models.FeedItem)
}

// ActivityEntry is the input of Record.
type ActivityEntry struct {
	GroupID       int
	UserID        int
	Type          models.ActivityType
	TargetMovieID *int
	TargetUserID  *int
	Metadata      map[string]interface{}
}

// Page selects a slice of a feed.
type Page struct {
	Limit  int
	Offset int
	Filter string
}

// FeedPage is one page of enriched activity.
type FeedPage struct {
	Activities []models.FeedItem `json:"activities"`
	HasMore    bool              `json:"hasMore"`
}

// ActivityService records domain events and serves feed queries.
type ActivityService struct {
	activities  repositories.ActivityRepository
	memberships repositories.MembershipRepository
	profiles    repositories.ProfileRepository
	groups      repositories.GroupRepository
	movies      repositories.MovieRepository
	broadcaster ActivityBroadcaster
}

// NewActivityService constructs an ActivityService. broadcaster may be nil.
func NewActivityService(
	activities repositories.ActivityRepository,
	memberships repositories.MembershipRepository,
	profiles repositories.ProfileRepository,
	groups repositories.GroupRepository,
	movies repositories.MovieRepository,
	broadcaster ActivityBroadcaster,
) *ActivityService {
	return &ActivityService{
		activities:  activities,
		memberships: memberships,
		profiles:    profiles,
		groups:      groups,
		movies:      movies,
		broadcaster: broadcaster,
	}
}

// Record appends an activity. Failures are logged and reported as false;
// a missing feed entry never fails the mutation that produced it.
func (s *ActivityService) Record(ctx context.Context, entry ActivityEntry) bool {
	logCtx := logrus.WithFields(logrus.Fields{
		"group_id":      entry.GroupID,
		"user_id":       entry.UserID,
		"activity_type": entry.Type,
	})

	if !entry.Type.Valid() {
		logCtx.Warn("Refusing to record unknown activity type")
		return false
	}

	metadata := types.JSONText("{}")
	if len(entry.Metadata) > 0 {
		raw, err := json.Marshal(entry.Metadata)
		if err != nil {
			logCtx.WithError(err).Warn("Activity metadata is not serializable")
			return false
		}
		metadata = raw
	}

	created, err := s.activities.CreateActivity(ctx, models.Activity{
		GroupID:       entry.GroupID,
		UserID:        entry.UserID,
		Type:          entry.Type,
		TargetMovieID: entry.TargetMovieID,
		TargetUserID:  entry.TargetUserID,
		Metadata:      metadata,
	})
	if err != nil {
		logCtx.WithError(err).Error("Failed to record activity")
		observability.IncActivityRecordFailure(string(entry.Type))
		return false
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastActivity(created.GroupID, s.enrichOne(ctx, created))
	}
	return true
}

// collaboratorTypes are the activity types produced outside this service.
var collaboratorTypes = map[models.ActivityType]struct{}{
	models.ActivityMovieRated:     {},
	models.ActivityRatingUpdated:  {},
	models.ActivityMovieAdded:     {},
	models.ActivityWatchlistAdded: {},
	models.ActivityCommentAdded:   {},
}

// Ingest records a movie-related activity reported by another service or
// client. The actor must be a member of the group.
func (s *ActivityService) Ingest(ctx context.Context, entry ActivityEntry) error {
	if _, ok := collaboratorTypes[entry.Type]; !ok {
		return newValidationError("type", "type must be one of movie_rated, rating_updated, movie_added, watchlist_added, comment_added")
	}
	if entry.TargetMovieID == nil || *entry.TargetMovieID <= 0 {
		return newValidationError("movie_id", "movie_id must be a positive integer")
	}
	if entry.GroupID <= 0 || entry.UserID <= 0 {
		return newValidationError("group_id", "group_id and user_id must be positive integers")
	}

	member, err := s.memberships.IsMember(ctx, entry.GroupID, entry.UserID)
	if err != nil {
		logrus.WithError(err).WithField("group_id", entry.GroupID).Error("Ingest: membership check failed")
		return ErrInternal
	}
	if !member {
		return fmt.Errorf("%w: not a member of this group", ErrForbidden)
	}

	entry.TargetUserID = nil
	if !s.Record(ctx, entry) {
		return ErrInternal
	}
	return nil
}

// QueryForGroup returns a page of the group's feed. The caller must be a member.
func (s *ActivityService) QueryForGroup(ctx context.Context, groupID, callerID int, page Page) (FeedPage, error) {
	member, err := s.memberships.IsMember(ctx, groupID, callerID)
	if err != nil {
		logrus.WithError(err).WithField("group_id", groupID).Error("QueryForGroup: membership check failed")
		return FeedPage{}, ErrInternal
	}
	if !member {
		return FeedPage{}, fmt.Errorf("%w: not a member of this group", ErrForbidden)
	}
	return s.query(ctx, []int{groupID}, page)
}

// QueryForUser returns a page of activity across every group the user belongs to.
func (s *ActivityService) QueryForUser(ctx context.Context, userID int, page Page) (FeedPage, error) {
	groupIDs, err := s.memberships.ListGroupIDsForUser(ctx, userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("QueryForUser: listing groups failed")
		return FeedPage{}, ErrInternal
	}
	if len(groupIDs) == 0 {
		if _, _, err := normalizePage(page); err != nil {
			return FeedPage{}, err
		}
		return FeedPage{Activities: []models.FeedItem{}}, nil
	}
	return s.query(ctx, groupIDs, page)
}

func (s *ActivityService) query(ctx context.Context, groupIDs []int, page Page) (FeedPage, error) {
	page, activityTypes, err := normalizePage(page)
	if err != nil {
		return FeedPage{}, err
	}
	logCtx := logrus.WithFields(logrus.Fields{"group_ids": groupIDs, "filter": page.Filter})

	q := repositories.ActivityQuery{
		GroupIDs: groupIDs,
		Types:    activityTypes,
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	total, err := s.activities.CountActivities(ctx, q)
	if err != nil {
		logCtx.WithError(err).Error("Counting activities failed")
		return FeedPage{}, ErrInternal
	}
	records, err := s.activities.ListActivities(ctx, q)
	if err != nil {
		logCtx.WithError(err).Error("Listing activities failed")
		return FeedPage{}, ErrInternal
	}
	items, err := s.enrich(ctx, records)
	if err != nil {
		logCtx.WithError(err).Error("Enriching activities failed")
		return FeedPage{}, ErrInternal
	}

	return FeedPage{
		Activities: items,
		HasMore:    page.Offset < total-page.Limit,
	}, nil
}

func normalizePage(page Page) (Page, []models.ActivityType, error) {
	if page.Filter == "" {
		page.Filter = FilterAll
	}
	activityTypes, ok := filterTypes[page.Filter]
	if !ok {
		return Page{}, nil, newValidationError("filter", "filter must be one of all, ratings, watchlist, comments")
	}
	if page.Limit <= 0 {
		page.Limit = DefaultPageLimit
	}
	if page.Limit > MaxPageLimit {
		page.Limit = MaxPageLimit
	}
	if page.Offset < 0 {
		page.Offset = 0
	}
	return page, activityTypes, nil
}

// enrich resolves users, groups and movies referenced by the page with one
// lookup per entity kind and joins them in memory.
func (s *ActivityService) enrich(ctx context.Context, records []models.Activity) ([]models.FeedItem, error) {
	var userIDs, groupIDs, movieIDs []int
	seenUsers, seenGroups, seenMovies := map[int]struct{}{}, map[int]struct{}{}, map[int]struct{}{}
	addID := func(ids *[]int, seen map[int]struct{}, id int) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			*ids = append(*ids, id)
		}
	}
	for _, r := range records {
		addID(&userIDs, seenUsers, r.UserID)
		if r.TargetUserID != nil {
			addID(&userIDs, seenUsers, *r.TargetUserID)
		}
		addID(&groupIDs, seenGroups, r.GroupID)
		if r.TargetMovieID != nil {
			addID(&movieIDs, seenMovies, *r.TargetMovieID)
		}
	}

	profiles, err := s.profiles.GetProfilesByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	groups, err := s.groups.GetGroupsByIDs(ctx, groupIDs)
	if err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}
	movies, err := s.movies.GetMoviesByIDs(ctx, movieIDs)
	if err != nil {
		return nil, fmt.Errorf("load movies: %w", err)
	}

	profileByID := make(map[int]models.Profile, len(profiles))
	for _, p := range profiles {
		profileByID[p.ID] = p
	}
	groupByID := make(map[int]models.Group, len(groups))
	for _, g := range groups {
		groupByID[g.ID] = g
	}
	movieByID := make(map[int]models.Movie, len(movies))
	for _, m := range movies {
		movieByID[m.ID] = m
	}

	items := make([]models.FeedItem, 0, len(records))
	for _, r := range records {
		item := models.FeedItem{Activity: r}
		if p, ok := profileByID[r.UserID]; ok {
			item.UserName = displayName(p)
			item.UserAvatarURL = p.AvatarURL
		}
		if r.TargetUserID != nil {
			if p, ok := profileByID[*r.TargetUserID]; ok {
				item.TargetUserName = displayName(p)
			}
		}
		if g, ok := groupByID[r.GroupID]; ok {
			item.GroupName = g.Name
		}
		if r.TargetMovieID != nil {
			if m, ok := movieByID[*r.TargetMovieID]; ok {
				item.MovieTitle = m.Title
				item.MoviePosterURL = m.PosterURL
			}
		}
		item.Description = Describe(item)
		items = append(items, item)
	}
	return items, nil
}

func (s *ActivityService) enrichOne(ctx context.Context, record models.Activity) models.FeedItem {
	items, err := s.enrich(ctx, []models.Activity{record})
	if err != nil || len(items) == 0 {
		item := models.FeedItem{Activity: record}
		item.Description = Describe(item)
		return item
	}
	return items[0]
}
