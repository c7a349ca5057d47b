package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/models"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/repositories"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/taglist"
	"github.com/CardTapp/acts-as-taggable-on-mongoid-sub000/internal/tagtype"
)

var (
	ErrTagNotFound    = errors.New("tag not found")
	ErrTagExists      = errors.New("tag name already exists in this context")
	ErrNoUpdateFields = errors.New("no fields to update")
	ErrInvalidTagName = errors.New("tag name is blank once cleaned")
)

type TagService interface {
	GetTags(ctx context.Context, def *tagtype.TagType) ([]models.Tag, error)
	GetTag(ctx context.Context, def *tagtype.TagType, tagID primitive.ObjectID) (*models.Tag, error)
	UpdateTag(ctx context.Context, def *tagtype.TagType, tagID primitive.ObjectID, updatePayload models.TagUpdate) (*models.Tag, error)
	DeleteTag(ctx context.Context, def *tagtype.TagType, tagID primitive.ObjectID) (bool, error)
}

type tagServiceImpl struct {
	tagRepo     repositories.TagRepository
	taggingRepo repositories.TaggingRepository
}

func NewTagService(tagRepo repositories.TagRepository, taggingRepo repositories.TaggingRepository) TagService {
	return &tagServiceImpl{tagRepo: tagRepo, taggingRepo: taggingRepo}
}

func (s *tagServiceImpl) GetTags(ctx context.Context, def *tagtype.TagType) ([]models.Tag, error) {
	log.Debug().Str("taggable_type", def.OwnerType()).Str("context", def.Context()).Msg("Attempting to retrieve tags")
	tags, err := s.tagRepo.FindByContext(ctx, def)
	if err != nil {
		log.Error().Err(err).Str("context", def.Context()).Msg("Error finding tags for context")
		return nil, err
	}
	if tags == nil {
		tags = []models.Tag{}
	}
	log.Debug().Str("context", def.Context()).Int("count", len(tags)).Msg("Successfully retrieved tags")
	return tags, nil
}

func (s *tagServiceImpl) GetTag(ctx context.Context, def *tagtype.TagType, tagID primitive.ObjectID) (*models.Tag, error) {
	tag, err := s.tagRepo.FindByID(ctx, def, tagID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrTagNotFound
		}
		log.Error().Err(err).Str("tag_id", tagID.Hex()).Msg("Error finding tag")
		return nil, err
	}
	return tag, nil
}

// buildTagUpdateFields cleans a new name the way the context cleans its lists.
func (s *tagServiceImpl) buildTagUpdateFields(def *tagtype.TagType, updatePayload models.TagUpdate) (bson.M, error) {
	log.Debug().Interface("updatePayload", updatePayload).Msg("Building tag update fields")
	updateFields := bson.M{}
	if updatePayload.Name != nil {
		cleaned := taglist.New(def, taglist.Options{}, *updatePayload.Name).Tags()
		if len(cleaned) == 0 {
			return nil, ErrInvalidTagName
		}
		updateFields["name"] = cleaned[0]
	}
	return updateFields, nil
}

// UpdateTag renames a tag and the tag name its taggings carry.
func (s *tagServiceImpl) UpdateTag(ctx context.Context, def *tagtype.TagType, tagID primitive.ObjectID, updatePayload models.TagUpdate) (*models.Tag, error) {
	log.Debug().Str("context", def.Context()).Str("tagID", tagID.Hex()).Interface("updatePayload", updatePayload).Msg("Attempting to update tag")
	updateFields, err := s.buildTagUpdateFields(def, updatePayload)
	if err != nil {
		log.Warn().Err(err).Str("tagID", tagID.Hex()).Msg("Failed to build tag update fields")
		return nil, err
	}

	if len(updateFields) == 0 {
		log.Warn().Str("tagID", tagID.Hex()).Msg("No fields to update for tag")
		return nil, ErrNoUpdateFields
	}

	result, err := s.tagRepo.Update(ctx, def, tagID, updateFields)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			log.Warn().Err(err).Str("tagID", tagID.Hex()).Str("context", def.Context()).Msg("Tag name already exists during update")
			return nil, ErrTagExists
		}
		log.Error().Err(err).Str("tag_id", tagID.Hex()).Msg("Failed to update tag")
		return nil, fmt.Errorf("failed to update tag: %w", err)
	}

	if result.MatchedCount == 0 {
		log.Warn().Str("tagID", tagID.Hex()).Msg("Tag not found to update")
		return nil, ErrTagNotFound
	}

	if name, ok := updateFields["name"].(string); ok {
		renamed, err := s.taggingRepo.RenameTag(ctx, def, tagID, name)
		if err != nil {
			log.Error().Err(err).Str("tag_id", tagID.Hex()).Msg("Failed to rename taggings of tag")
			return nil, err
		}
		log.Debug().Str("tagID", tagID.Hex()).Int64("taggings", renamed).Msg("Renamed taggings of tag")
	}

	updatedTag, err := s.tagRepo.FindByID(ctx, def, tagID)
	if err != nil {
		log.Error().Err(err).Str("tag_id", tagID.Hex()).Msg("Failed to find updated tag")
		return nil, fmt.Errorf("failed to retrieve the updated tag: %w", err)
	}
	log.Info().Str("tagID", tagID.Hex()).Str("name", updatedTag.Name).Msg("Tag updated successfully")
	return updatedTag, nil
}

// DeleteTag destroys a tag together with its taggings.
func (s *tagServiceImpl) DeleteTag(ctx context.Context, def *tagtype.TagType, tagID primitive.ObjectID) (bool, error) {
	log.Debug().Str("context", def.Context()).Str("tagID", tagID.Hex()).Msg("Attempting to delete tag")
	if _, err := s.GetTag(ctx, def, tagID); err != nil {
		return false, err
	}

	removed, err := s.taggingRepo.DeleteByTag(ctx, def, tagID)
	if err != nil {
		log.Error().Err(err).Str("tag_id", tagID.Hex()).Msg("Failed to delete taggings of tag")
		return false, err
	}

	result, err := s.tagRepo.Delete(ctx, def, tagID)
	if err != nil {
		log.Error().Err(err).Str("tag_id", tagID.Hex()).Msg("Failed to delete tag")
		return false, err
	}

	if result.DeletedCount == 0 {
		log.Warn().Str("tagID", tagID.Hex()).Msg("Tag not found to delete")
		return false, ErrTagNotFound
	}
	log.Info().Str("tagID", tagID.Hex()).Int64("taggings", removed).Msg("Tag deleted successfully")
	return true, nil
}
