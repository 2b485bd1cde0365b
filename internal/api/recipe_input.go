package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/types"
)

// bindRecipe reads a recipe body, either JSON with the image as a data URI
// or a multipart form with the image as a file. The decoded image is
// returned unsaved.
func bindRecipe(c *gin.Context) (service.RecipeInput, *service.Upload, error) {
	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		return bindRecipeForm(c)
	}

	var req types.RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return service.RecipeInput{}, nil, err
	}

	in := service.RecipeInput{
		Name:        req.Name,
		Text:        req.Text,
		Image:       req.Image,
		CookingTime: req.CookingTime,
		Tags:        req.Tags,
		Ingredients: toAmounts(req.Ingredients),
	}
	if req.Image == nil || *req.Image == "" {
		return in, nil, nil
	}

	upload, err := service.DecodeDataURI(*req.Image)
	if err != nil {
		return in, nil, err
	}
	return in, upload, nil
}

func bindRecipeForm(c *gin.Context) (service.RecipeInput, *service.Upload, error) {
	var in service.RecipeInput
	form, err := c.MultipartForm()
	if err != nil {
		return in, nil, service.NewValidationError(service.NonFieldErrors, "malformed multipart form")
	}

	verr := &service.ValidationError{}
	value := func(key string) *string {
		if v, ok := form.Value[key]; ok && len(v) > 0 {
			s := v[0]
			return &s
		}
		return nil
	}

	in.Name = value("name")
	in.Text = value("text")
	if raw := value("cooking_time"); raw != nil {
		n, err := strconv.Atoi(strings.TrimSpace(*raw))
		if err != nil {
			verr.Add("cooking_time", "a valid integer is required")
		} else {
			in.CookingTime = &n
		}
	}

	if raw, ok := form.Value["tags"]; ok {
		in.Tags = make([]uint, 0, len(raw))
		for _, s := range raw {
			id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
			if err != nil {
				verr.Addf("tags", "incorrect type: %q is not a valid id", s)
				continue
			}
			in.Tags = append(in.Tags, uint(id))
		}
	}

	if raw := value("ingredients"); raw != nil {
		var items []types.IngredientAmountRequest
		if err := json.Unmarshal([]byte(*raw), &items); err != nil {
			verr.Add("ingredients", "expected a JSON list of {id, amount} objects")
		} else {
			in.Ingredients = toAmounts(items)
			if in.Ingredients == nil {
				in.Ingredients = []service.IngredientAmount{}
			}
		}
	}

	var upload *service.Upload
	if files := form.File["image"]; len(files) > 0 {
		upload, err = readUpload(files[0])
		if err != nil && !merge(verr, err) {
			return in, nil, err
		}
	} else if raw := value("image"); raw != nil {
		// An empty image field reads as "no file was submitted".
		in.Image = raw
	}

	if err := verr.OrNil(); err != nil {
		return in, nil, err
	}
	return in, upload, nil
}

func readUpload(fh *multipart.FileHeader) (*service.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, service.MaxImageSize+1))
	if err != nil {
		return nil, err
	}
	return service.NewUpload(filepath.Ext(fh.Filename), data)
}

// merge copies the messages of a ValidationError into verr and reports
// whether err was one.
func merge(verr *service.ValidationError, err error) bool {
	var other *service.ValidationError
	if !errors.As(err, &other) {
		return false
	}
	for field, messages := range other.Fields {
		for _, m := range messages {
			verr.Add(field, m)
		}
	}
	return true
}

func toAmounts(items []types.IngredientAmountRequest) []service.IngredientAmount {
	if items == nil {
		return nil
	}
	out := make([]service.IngredientAmount, len(items))
	for i, item := range items {
		out[i] = service.IngredientAmount{IngredientID: item.ID, Amount: item.Amount}
	}
	return out
}
